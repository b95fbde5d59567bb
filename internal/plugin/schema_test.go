package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDescription() Description {
	return Description{
		Name: "sample",
		Properties: []Property{
			{
				Name: ActionParameter, Type: TypeOptions, Default: "read",
				Options: []Option{{Name: "Read", Value: "read"}, {Name: "Write", Value: "write"}, {Name: "Download", Value: "download"}},
			},
			{
				Name: "form", Type: TypeString, Required: true,
				Display: &DisplayOptions{Hide: map[string][]any{ActionParameter: {"download"}}},
			},
			{
				Name: "limit", Type: TypeNumber, Default: 1000, MinValue: Float(1),
				Display: &DisplayOptions{Show: map[string][]any{ActionParameter: {"read"}}},
			},
			{
				Name: "with_auth", Type: TypeBoolean, Default: false,
				Display: &DisplayOptions{Show: map[string][]any{ActionParameter: {"download"}}},
			},
			{
				Name: "account", Type: TypeString, Required: true,
				Display: &DisplayOptions{Show: map[string][]any{"with_auth": {false}}},
			},
			{
				Name: "filters", Type: TypeCollection,
				Display: &DisplayOptions{Show: map[string][]any{ActionParameter: {"read"}}},
				Fields: []Property{
					{Name: "field", Type: TypeString, Required: true},
					{Name: "operand", Type: TypeOptions, Options: []Option{{Value: "eq"}, {Value: "like"}}},
				},
			},
		},
	}
}

func TestApplyDefaultsFollowsDisplayRules(t *testing.T) {
	d := testDescription()

	read := d.ApplyDefaults(map[string]any{ActionParameter: "read", "form": "a/b/1"})
	assert.Equal(t, 1000, read["limit"])
	assert.NotContains(t, read, "with_auth")

	download := d.ApplyDefaults(map[string]any{ActionParameter: "download"})
	assert.Equal(t, false, download["with_auth"])
	assert.NotContains(t, download, "limit")

	kept := d.ApplyDefaults(map[string]any{ActionParameter: "read", "limit": 5})
	assert.Equal(t, 5, kept["limit"])
}

func TestVisibleShowAndHide(t *testing.T) {
	d := testDescription()
	form, _ := d.Property("form")
	account, _ := d.Property("account")

	assert.True(t, form.Visible(map[string]any{ActionParameter: "read"}))
	assert.False(t, form.Visible(map[string]any{ActionParameter: "download"}))

	assert.True(t, account.Visible(map[string]any{"with_auth": false}))
	assert.True(t, account.Visible(map[string]any{"with_auth": "false"}))
	assert.False(t, account.Visible(map[string]any{"with_auth": true}))
	assert.False(t, account.Visible(map[string]any{}))
}

func TestValidateParameters(t *testing.T) {
	d := testDescription()

	ok := d.ApplyDefaults(map[string]any{
		ActionParameter: "read",
		"form":          "a/b/1",
		"filters":       []any{map[string]any{"field": "1000001", "operand": "like"}},
	})
	assert.Empty(t, d.ValidateParameters(ok))

	bad := d.ApplyDefaults(map[string]any{
		ActionParameter: "read",
		"limit":         0,
		"filters":       []any{map[string]any{"operand": "neq"}},
	})
	assert.ElementsMatch(t, []string{
		`parameter "form" is required`,
		`parameter "limit": 0 is below the minimum 1`,
		`parameter "filters[0].field" is required`,
		`parameter "filters[0].operand": "neq" is not one of eq, like`,
	}, d.ValidateParameters(bad))

	download := d.ApplyDefaults(map[string]any{ActionParameter: "download"})
	assert.Equal(t, []string{`parameter "account" is required`}, d.ValidateParameters(download))
}

func TestValidateParametersTypes(t *testing.T) {
	d := testDescription()
	params := d.ApplyDefaults(map[string]any{
		ActionParameter: "read",
		"form":          "a/b/1",
		"limit":         "many",
		"filters":       "nope",
	})
	assert.ElementsMatch(t, []string{
		`parameter "limit": many is not a number`,
		`parameter "filters" must be a list of objects`,
	}, d.ValidateParameters(params))
}

func TestActionsOf(t *testing.T) {
	actions := ActionsOf(testDescription())
	assert.Equal(t, []string{"read", "write", "download"}, []string{actions[0].Name, actions[1].Name, actions[2].Name})
	assert.Nil(t, ActionsOf(Description{}))
}
