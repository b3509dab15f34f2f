package posting

import (
	"context"

	"lca-platform/internal/auditchain"
	"lca-platform/internal/obs"
)

// ResourceType is the chain scope prefix for posting audit entries.
const ResourceType = "lca_posting"

// ChainRecorder bridges the lifecycle service's audit hook to the shared
// hash chain. This keeps posting internals from depending on how entries are
// hashed or persisted.
type ChainRecorder struct {
	Chain *auditchain.Service
}

func (a ChainRecorder) Record(ctx context.Context, action, postingID, actor string, metadata map[string]string) error {
	if a.Chain == nil {
		return nil
	}
	_, err := a.Chain.Append(ctx, ResourceType, postingID, auditchain.Action(action), actor, metadata)
	if err == nil {
		obs.AuditEntriesAppended.Inc()
	}
	return err
}
