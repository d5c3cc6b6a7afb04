package graph

import (
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasFinding returns true if findings contain one of the given severity
// whose message contains substr.
func hasFinding(findings []ValidationError, sev ValidationSeverity, substr string) bool {
	for _, f := range findings {
		if f.Severity == sev && strings.Contains(f.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateValidTree(t *testing.T) {
	tr := buildSmall(t)
	assert.Empty(t, Errors(Validate(tr)))
}

func TestValidateBrokenBackReference(t *testing.T) {
	tr := buildSmall(t)
	base := tr.MustLookup("base")
	base.Daughters = base.Daughters[:1] // drop module_L1b

	findings := Validate(tr)
	assert.True(t, hasFinding(findings, SeverityError, "does not list it as a daughter"), "findings %v", findings)
}

func TestValidateMissingMother(t *testing.T) {
	tr := buildSmall(t)
	tr.MustLookup("module_L1b").Mother = 77
	assert.True(t, hasFinding(Validate(tr), SeverityError, "mother 77 does not exist"))
}

func TestValidateCycle(t *testing.T) {
	tr := buildSmall(t)
	plate := tr.MustLookup("support_plate_bottom")
	plate.Daughters = append(plate.Daughters, tr.MustLookup("base").ID)
	assert.True(t, hasFinding(Validate(tr), SeverityError, "cycle"))
}

func TestValidateDuplicateName(t *testing.T) {
	tr := buildSmall(t)
	tr.MustLookup("module_L1b").Name = "base"
	assert.True(t, hasFinding(Validate(tr), SeverityError, "duplicate name"))
}

func TestValidateFrame(t *testing.T) {
	tr := buildSmall(t)
	tr.MustLookup("base").Local.U = v3.Vec{X: 2}
	assert.True(t, hasFinding(Validate(tr), SeverityError, "|u|"))
}

func TestValidateBoxes(t *testing.T) {
	tr := buildSmall(t)
	tr.MustLookup("module_L1b").Box = v3.Vec{X: -1, Y: 1, Z: 1}
	tr.MustLookup("support_plate_bottom").Box = v3.Vec{}

	findings := Validate(tr)
	assert.True(t, hasFinding(findings, SeverityError, "negative box"))
	assert.True(t, hasFinding(findings, SeverityWarning, "empty box"))
}

func TestValidateLeafGhostWarns(t *testing.T) {
	tr := buildSmall(t)
	_, err := tr.Add(&Node{Name: "c_support_kin_L13t", Local: frameAt(0, 0, 0), Ghost: true}, "base")
	require.NoError(t, err)

	findings := Validate(tr)
	assert.True(t, hasFinding(findings, SeverityWarning, "ghost volume has no daughters"))
	assert.Empty(t, Errors(findings), "leaf ghost must not be an error")
}

func TestValidateReferencedGhostIsQuiet(t *testing.T) {
	tr := buildSmall(t)
	_, err := tr.Add(&Node{Name: "c_support_kin_L13b", Local: frameAt(0, 0, 0), Ghost: true}, "base")
	require.NoError(t, err)
	_, err = tr.Add(&Node{
		Name:  "support_bottom_L13",
		Local: frameAt(1, 0, 0),
		Box:   v3.Vec{X: 1, Y: 1, Z: 1},
		Refs:  []string{"c_support_kin_L13b"},
	}, "base")
	require.NoError(t, err)

	assert.False(t, hasFinding(Validate(tr), SeverityWarning, "ghost volume has no daughters"))
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Node: "base", Message: "bad", Severity: SeverityError}
	assert.Equal(t, "[error] base: bad", e.Error())
	e = ValidationError{Message: "bad", Severity: SeverityWarning}
	assert.Equal(t, "[warning] bad", e.Error())
}
