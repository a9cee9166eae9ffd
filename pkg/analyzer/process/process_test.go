package process

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSingmin/CSharpAnalyser/pkg/concat"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
	"github.com/JSingmin/CSharpAnalyser/pkg/resolve"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax/csharp"
)

func parseMethod(t *testing.T, params, body string) *syntax.Tree {
	t.Helper()
	source := fmt.Sprintf(`using System;
using System.Diagnostics;

public class TestClass
{
    public void TestMethod(%s)
    {
%s
    }

    private string GetArguments() { return "echo Hello"; }
    private decimal GetNumber() { return 1m; }
}
`, params, body)
	tree, err := csharp.ParseString(source)
	require.NoError(t, err)
	return tree
}

func TestAnalyzer(t *testing.T) {
	tests := []struct {
		name   string
		params string
		body   string
		line   int // zero-based line of the finding, -1 for none
	}{
		{"literal", "", `System.Diagnostics.Process.Start("CMD.exe", "echo Hello");`, -1},
		{"literal variable", "", `string arguments = "echo Hello";
System.Diagnostics.Process.Start("CMD.exe", arguments);`, -1},
		{"parameter", "string arguments", `System.Diagnostics.Process.Start("CMD.exe", arguments);`, -1},
		{"method call", "", `System.Diagnostics.Process.Start("CMD.exe", this.GetArguments());`, -1},
		{"safe double", "", `System.Diagnostics.Process.Start("CMD.exe", "echo Hello " + 3.14);`, -1},
		{"safe decimal parameter", "decimal number", `System.Diagnostics.Process.Start("CMD.exe", "echo Hello " + number);`, -1},
		{"safe method call", "", `System.Diagnostics.Process.Start("CMD.exe", "echo Hello " + this.GetNumber());`, -1},
		{"safe variable", "", `string arguments = "echo Hello " + 2;
System.Diagnostics.Process.Start("CMD.exe", arguments);`, -1},
		{"safe variable with parameter", "int number", `string arguments = "echo Hello " + number;
System.Diagnostics.Process.Start("CMD.exe", arguments);`, -1},
		{"single argument", "string name", `Process.Start("echo " + name);`, -1},
		{"other method", "string name", `Process.Kill("CMD.exe", "echo " + name);`, -1},
		{"unqualified start", "string name", `Start("CMD.exe", "echo " + name);`, -1},
		{"unsafe literals", "", `System.Diagnostics.Process.Start("CMD.exe", "echo Hello" + " World");`, 7},
		{"unsafe parameter", "string value", `System.Diagnostics.Process.Start("CMD.exe", "echo Hello" + value);`, 7},
		{"short qualifier", "string value", `Process.Start("CMD.exe", "echo " + value);`, 7},
		{"unsafe masked variable", "string name", `string arguments1 = "echo " + name;
string arguments2 = arguments1;
System.Diagnostics.Process.Start("CMD.exe", arguments2);`, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			require.NoError(t, a.Visit(parseMethod(t, tt.params, tt.body)))

			if tt.line < 0 {
				assert.Empty(t, a.Findings())
				return
			}
			require.Len(t, a.Findings(), 1)
			f := a.Findings()[0]
			assert.Equal(t, models.MessageProcessConcat, f.Message)
			assert.Equal(t, models.RuleProcessConcat, f.Rule)
			loc, err := f.Location.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.line, loc.Line)
		})
	}
}

func TestWithSafeTable(t *testing.T) {
	tree := parseMethod(t, "string value", `Process.Start("CMD.exe", "echo " + value);`)

	lenient := New(WithSafeTable(concat.NewSafeTable(map[resolve.Type][]resolve.Type{
		resolve.TypeString: {resolve.TypeString},
	})))
	require.NoError(t, lenient.Visit(tree))
	assert.Empty(t, lenient.Findings())
}

func TestFindingsAccumulateAcrossTrees(t *testing.T) {
	unsafe := `Process.Start("CMD.exe", "echo " + value);`
	a := New()
	require.NoError(t, a.Visit(parseMethod(t, "string value", unsafe)))
	require.NoError(t, a.Visit(parseMethod(t, "string value", unsafe+"\n"+unsafe)))
	assert.Len(t, a.Findings(), 3)
	assert.Equal(t, Name, a.Name())
}
