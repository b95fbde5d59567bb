package builtin

import (
	"ragicflow/internal/ragic"
	"ragicflow/internal/types"
)

// itemsResult exposes items to later steps as output.items[i].json and
// output.items[i].binary.
func itemsResult(items []ragic.Item) *types.StepResult {
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = item.Map()
	}
	return &types.StepResult{
		Status: "success",
		Output: map[string]any{
			"items": list,
			"count": len(items),
		},
	}
}
