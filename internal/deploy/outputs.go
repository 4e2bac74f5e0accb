package deploy

import (
	"fmt"
	"sort"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/common/apitype"

	"github.com/vietdv277/nimbus/pkg/types"
)

// SecretMask replaces secret output values unless they are revealed.
const SecretMask = "[secret]"

// opOrder is the display order of change kinds.
var opOrder = []string{
	string(apitype.OpCreate),
	string(apitype.OpUpdate),
	string(apitype.OpReplace),
	string(apitype.OpDelete),
	string(apitype.OpSame),
}

// FlattenOutputs turns stack outputs into sorted key/value rows. Nested
// maps become dotted keys and lists become indexed keys, so
// subnetIds.compute[0] names the first compute subnet.
func FlattenOutputs(outputs auto.OutputMap, reveal bool) []types.StackOutput {
	var rows []types.StackOutput
	for key, out := range outputs {
		secret := out.Secret
		flatten(key, out.Value, func(k, v string) {
			if secret && !reveal {
				v = SecretMask
			}
			rows = append(rows, types.StackOutput{Key: k, Value: v, Secret: secret})
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func flatten(key string, value any, emit func(k, v string)) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(key+"."+k, v[k], emit)
		}
	case []any:
		for i, e := range v {
			flatten(fmt.Sprintf("%s[%d]", key, i), e, emit)
		}
	case nil:
		emit(key, "")
	default:
		emit(key, fmt.Sprint(v))
	}
}

// Changes orders a resource change summary for display, dropping kinds
// with no resources.
func Changes(summary map[string]int) []types.ChangeCount {
	var out []types.ChangeCount
	seen := map[string]bool{}
	for _, op := range opOrder {
		seen[op] = true
		if n := summary[op]; n > 0 {
			out = append(out, types.ChangeCount{Op: op, Count: n})
		}
	}

	var rest []string
	for op, n := range summary {
		if !seen[op] && n > 0 {
			rest = append(rest, op)
		}
	}
	sort.Strings(rest)
	for _, op := range rest {
		out = append(out, types.ChangeCount{Op: op, Count: summary[op]})
	}
	return out
}

// HasChanges reports whether a summary contains anything but unchanged
// resources.
func HasChanges(changes []types.ChangeCount) bool {
	for _, c := range changes {
		if c.Op != string(apitype.OpSame) && c.Count > 0 {
			return true
		}
	}
	return false
}

func previewSummary(summary map[apitype.OpType]int) map[string]int {
	out := make(map[string]int, len(summary))
	for op, n := range summary {
		out[string(op)] = n
	}
	return out
}

func updateSummary(s auto.UpdateSummary) map[string]int {
	if s.ResourceChanges == nil {
		return nil
	}
	return *s.ResourceChanges
}
