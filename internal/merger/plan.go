// =============================================================================
// Workbook Merger - Merge Plan
// =============================================================================
//
// A Plan is the merged workbook before it is written: the ordered sheet
// records and the registry that keeps their names unique.
//
// BUILDING A PLAN:
//   1. NewPlan()          - choose token or rank ordering
//   2. Add() per input    - name every sheet and attach its ordering key
//   3. Sort()             - stable sort by ordering key
//
// Records are appended in discovery order, so after the stable sort sheets
// with equal keys keep the order in which their files were discovered.
//
// =============================================================================

package merger

import (
	"sort"

	"github.com/ginjaninja78/workbook-merger/internal/naming"
	"github.com/ginjaninja78/workbook-merger/internal/types"
)

// Plan holds the sheet records of one merged workbook.
type Plan struct {
	// Records are the sheets in insertion order until Sort is called.
	Records []types.SheetRecord

	// order is the rank table; nil selects token ordering.
	order *naming.OrderTable

	registry *naming.Registry
}

// NewPlan creates an empty plan. A nil order table selects token ordering.
func NewPlan(order *naming.OrderTable) *Plan {
	return &Plan{
		order:    order,
		registry: naming.NewRegistry(),
	}
}

// Add appends one record per sheet of wb, in workbook order.
func (p *Plan) Add(file types.InputFile, wb *types.SourceWorkbook) {
	sheetBase, token := naming.ParseInputName(file.BaseName)
	key := p.key(sheetBase, token)

	for _, sheet := range wb.Sheets {
		candidate := naming.SheetName(sheetBase, sheet.Name, len(wb.Sheets))
		p.Records = append(p.Records, types.SheetRecord{
			Name:        p.registry.Reserve(candidate),
			Key:         key,
			Snapshot:    sheet.Snapshot,
			Origin:      file,
			OriginSheet: sheet.Name,
			OriginIndex: sheet.Index,
		})
	}
}

// key builds the ordering key of every sheet of a file.
func (p *Plan) key(sheetBase, token string) types.OrderKey {
	if p.order == nil {
		return types.OrderKey{Token: token}
	}
	return types.OrderKey{Rank: p.order.Rank(sheetBase), ByRank: true}
}

// Sort orders the records by key. Equal keys keep their insertion order.
func (p *Plan) Sort() {
	sort.SliceStable(p.Records, func(i, j int) bool {
		return p.Records[i].Key.Less(p.Records[j].Key)
	})
}

// Names returns the sheet names in the current record order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Records))
	for i, r := range p.Records {
		names[i] = r.Name
	}
	return names
}

// Len returns the number of sheets in the plan.
func (p *Plan) Len() int {
	return len(p.Records)
}
