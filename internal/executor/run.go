package executor

import (
	"context"

	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/logging"
	"github.com/hpungsan/reqtab/internal/request"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// Run executes the draft of tab id and stores the outcome on the tab.
// The tab may be closed while the request is in flight; its result is then dropped.
func (e *Executor) Run(ctx context.Context, m *tabs.Manager, id string) (request.Result, error) {
	tab, ok := m.Tab(id)
	if !ok {
		return nil, errors.NewNotFound("tab", id)
	}
	ctx = logging.WithTabID(ctx, id)
	log := logging.FromContext(ctx)

	m.BeginExecution(id)
	log.Debug().Str("method", tab.Draft.Method).Str("url", tab.Draft.URL).Msg("executing request")

	result := e.Execute(ctx, tab.Draft)
	if !m.SetResult(id, result) {
		log.Debug().Msg("tab closed during execution; result dropped")
	}
	log.Debug().Str("result", result.Summary()).Msg("request finished")
	return result, nil
}
