package libdiff

import (
	"strings"

	"github.com/signadot/setdata/ir"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// DescribeChange renders a one line summary of a change from old to
// new. String changes show the edits inline, [-deleted-] and
// {+inserted+}.
func DescribeChange(oldVal, newVal *ir.Node) string {
	if oldVal != nil && newVal != nil && oldVal.Type == ir.StringType && newVal.Type == ir.StringType {
		return DiffString(oldVal.String, newVal.String)
	}
	return oldVal.ScalarString() + " -> " + newVal.ScalarString()
}

func DiffString(from, to string) string {
	diffCfg := diffpatch.New()
	doMultiLine := strings.Contains(from, "\n") && strings.Contains(to, "\n")
	diffs := diffCfg.DiffMain(from, to, doMultiLine)
	diffs = diffCfg.DiffCleanupSemantic(diffs)
	var b strings.Builder
	for i := range diffs {
		diff := &diffs[i]
		switch diff.Type {
		case diffpatch.DiffInsert:
			b.WriteString("{+" + diff.Text + "+}")
		case diffpatch.DiffDelete:
			b.WriteString("[-" + diff.Text + "-]")
		case diffpatch.DiffEqual:
			b.WriteString(diff.Text)
		}
	}
	return b.String()
}
