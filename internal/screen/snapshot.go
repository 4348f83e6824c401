package screen

import (
	"context"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/datatable"
	"github.com/kumss/console/internal/kumss"
	"github.com/kumss/console/internal/query"
)

// Snapshot fetches the first page of def and renders it once, for
// non-interactive output.
func Snapshot(ctx context.Context, def Definition, deps Deps, width int) (string, error) {
	filters := datatable.NewFilterState()
	if deps.PageSize > 0 {
		filters = filters.With(datatable.KeyPageSize, deps.PageSize)
	}
	props := datatable.Props[api.Record]{
		Title:        def.Title,
		Description:  def.Description,
		Columns:      deps.Format.Columns(def.Columns),
		Filters:      filters,
		FilterConfig: def.Filters,
	}
	page, err := snapshotPage(ctx, def, deps, filters)
	if err != nil {
		props.Err = err.Error()
	} else {
		props.Data = page
	}
	table := datatable.New(props)
	table.SetSize(max(40, width), filters.PageSize()+12)
	return table.View(), err
}

// snapshotPage goes through the query client when there is one, so the
// page lands in the page cache.
func snapshotPage(ctx context.Context, def Definition, deps Deps, filters datatable.FilterState) (*api.Page[api.Record], error) {
	if deps.Query == nil {
		return kumss.Records(deps.API, def.Resource).List(ctx, filters.Query())
	}
	req := query.Request{Slot: "snapshot/" + def.Name, Resource: def.Resource, Query: filters.Query()}
	_, wait := deps.Query.Issue(req)
	defer deps.Query.Forget(req.Slot)
	res := wait()
	return res.Page, res.Err
}
