package builtin

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/go-viper/mapstructure/v2"

	"ragicflow/internal/plugin"
	"ragicflow/internal/ragic"
	"ragicflow/internal/types"
)

// Ragic node actions.
const (
	ActionRead         = "read"
	ActionReadSingle   = "read_single"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionButton       = "action_button"
	ActionRetrieveFile = "retrieve_file"
)

// Write methods for create and update.
const (
	MethodJSON  = "json"
	MethodField = "field"
)

// Load-options methods.
const (
	LoadForms  = "forms"
	LoadFields = "fields"
)

// RagicNode reads and writes Ragic records.
type RagicNode struct {
	client *ragic.Client
	err    error
}

// NewRagicNode builds the node for creds. Invalid credentials surface from
// Validate and Execute, so a registry can still list the node.
func NewRagicNode(creds ragic.Credentials, opts ...ragic.ClientOption) *RagicNode {
	client, err := ragic.NewClient(creds, opts...)
	return &RagicNode{client: client, err: err}
}

func (n *RagicNode) Name() string { return "ragic" }

func (n *RagicNode) Actions() []plugin.ActionDef { return plugin.ActionsOf(n.Description()) }

func (n *RagicNode) Validate() error {
	if n.err != nil {
		return fmt.Errorf("ragic node: %w", n.err)
	}
	return nil
}

func (n *RagicNode) Description() plugin.Description {
	showFor := func(actions ...any) *plugin.DisplayOptions {
		return &plugin.DisplayOptions{Show: map[string][]any{plugin.ActionParameter: actions}}
	}
	writeOption := func(name, display, description string, def bool) plugin.Property {
		return plugin.Property{
			Name: name, DisplayName: display, Type: plugin.TypeBoolean, Default: def,
			Description: description,
			Display:     showFor(ActionCreate, ActionUpdate),
		}
	}

	return plugin.Description{
		Name:        n.Name(),
		DisplayName: "Ragic",
		Description: "Read and write records in a Ragic database",
		Group:       "transform",
		Version:     1,
		Credentials: []plugin.CredentialType{RagicCredentialType},
		Properties: []plugin.Property{
			{
				Name: plugin.ActionParameter, DisplayName: "Action", Type: plugin.TypeOptions, Default: ActionRead,
				Options: []plugin.Option{
					{Name: "Read Data", Value: ActionRead, Description: "Read records of a form"},
					{Name: "Read Single Data", Value: ActionReadSingle, Description: "Read one record"},
					{Name: "Create New Data", Value: ActionCreate, Description: "Create a record"},
					{Name: "Update Existed Data", Value: ActionUpdate, Description: "Update a record"},
					{Name: "Delete Data", Value: ActionDelete, Description: "Delete a record"},
					{Name: "Execute Action Button", Value: ActionButton, Description: "Run an action button on a record"},
					{Name: "Retrieve File", Value: ActionRetrieveFile, Description: "Download a file from a file field"},
				},
			},
			{
				Name: "method", DisplayName: "Method", Type: plugin.TypeOptions, Default: MethodJSON,
				Options: []plugin.Option{
					{Name: "JSON", Value: MethodJSON},
					{Name: "Field", Value: MethodField},
				},
				Display: showFor(ActionCreate, ActionUpdate),
			},
			{
				Name: "form", DisplayName: "Form", Type: plugin.TypeOptions, Required: true,
				Description:          "Form path; only forms the API key administers are listed",
				LoadOptionsMethod:    LoadForms,
				LoadOptionsDependsOn: []string{"credentials"},
				Display:              &plugin.DisplayOptions{Hide: map[string][]any{plugin.ActionParameter: {ActionRetrieveFile}}},
			},
			{
				Name: "record_index", DisplayName: "Record Index", Type: plugin.TypeNumber, Required: true,
				MinValue:    plugin.Float(0),
				Description: "Last path segment of the record URL: https://{server}/{account}/{path}/{form}/{record index}",
				Display:     showFor(ActionReadSingle, ActionUpdate, ActionDelete, ActionButton),
			},
			{
				Name: "json_body", DisplayName: "JSON Body", Type: plugin.TypeJSON,
				Description: "Object keyed by field ID, or its JSON text",
				Display: &plugin.DisplayOptions{Show: map[string][]any{
					plugin.ActionParameter: {ActionCreate, ActionUpdate},
					"method":               {MethodJSON},
				}},
			},
			{
				Name: "entries", DisplayName: "Entries", Type: plugin.TypeCollection, Required: true,
				Display: &plugin.DisplayOptions{Show: map[string][]any{
					plugin.ActionParameter: {ActionCreate, ActionUpdate},
					"method":               {MethodField},
				}},
				Fields: []plugin.Property{
					{
						Name: "field", DisplayName: "Field", Type: plugin.TypeOptions, Required: true,
						LoadOptionsMethod:    LoadFields,
						LoadOptionsDependsOn: []string{"credentials", "form", "record_index"},
					},
					{Name: "value", DisplayName: "Value", Type: plugin.TypeString},
				},
			},
			{
				Name: "show_subtables", DisplayName: "Show Subtables", Type: plugin.TypeBoolean, Default: true,
				Description: "Whether to include subtable data in the response",
				Display:     showFor(ActionRead, ActionReadSingle),
			},
			{
				Name: "ignore_masked", DisplayName: "Ignore Masked", Type: plugin.TypeBoolean, Default: false,
				Description: "Whether to return the unmasked value of masked text fields",
				Display:     showFor(ActionRead, ActionReadSingle),
			},
			{
				Name: "limit", DisplayName: "Limit", Type: plugin.TypeNumber, Default: ragic.DefaultLimit,
				MinValue:    plugin.Float(1),
				Description: "Maximum number of records to return; large values may time out",
				Display:     showFor(ActionRead),
			},
			{
				Name: "offset", DisplayName: "Offset", Type: plugin.TypeNumber, Default: 0,
				MinValue: plugin.Float(0),
				Display:  showFor(ActionRead),
			},
			{
				Name: "filters", DisplayName: "Filters", Type: plugin.TypeCollection,
				Display: showFor(ActionRead),
				Fields: []plugin.Property{
					{
						Name: "field", DisplayName: "Filter", Type: plugin.TypeOptions, Required: true,
						LoadOptionsMethod:    LoadFields,
						LoadOptionsDependsOn: []string{"credentials", "form"},
					},
					{
						Name: "operand", DisplayName: "Operand", Type: plugin.TypeOptions, Default: "eq",
						Options: []plugin.Option{
							{Name: "Equals", Value: "eq"},
							{Name: "Greater Or Equals", Value: "gte"},
							{Name: "Less Or Equals", Value: "lte"},
							{Name: "Greater", Value: "gt"},
							{Name: "Less", Value: "lt"},
							{Name: "Contains", Value: "like"},
							{Name: "Regular Expression", Value: "regex"},
							{Name: "Equals A Node ID", Value: "eqeq"},
						},
					},
					{Name: "value", DisplayName: "Condition", Type: plugin.TypeString},
				},
			},
			{
				Name: "other_parameters", DisplayName: "Other Parameters", Type: plugin.TypeCollection,
				Description: "Extra query parameters, see https://www.ragic.com/intl/en/doc-api/25",
				Display:     showFor(ActionRead, ActionReadSingle),
				Fields: []plugin.Property{
					{Name: "key", DisplayName: "Key", Type: plugin.TypeString, Required: true},
					{Name: "value", DisplayName: "Value", Type: plugin.TypeString},
				},
			},
			writeOption("do_formula", "Recalculate Formulas", "Run formulas after the write", false),
			writeOption("do_default_value", "Load Default Values", "Fill default values on the written record", false),
			writeOption("do_link_load", "Load Links", "Run link and load after the write", false),
			writeOption("do_workflow", "Run Workflow", "Run workflow scripts after the write", false),
			writeOption("check_lock", "Check Lock", "Refuse to write a locked record", false),
			writeOption("notification", "Send Notifications", "Send the form's notifications", true),
			{
				Name: "button_id", DisplayName: "Action Button ID", Type: plugin.TypeString, Required: true,
				Display: showFor(ActionButton),
			},
			{
				Name: "file_download_with_user_auth", DisplayName: "File Download With User Authentication",
				Type: plugin.TypeBoolean, Default: false,
				Description: `Whether "File Download With User Authentication" is enabled in Company Settings`,
				Display:     showFor(ActionRetrieveFile),
			},
			{
				Name: "account_name", DisplayName: "Account Name", Type: plugin.TypeString, Required: true,
				Description: "Database account the file belongs to",
				Display:     &plugin.DisplayOptions{Show: map[string][]any{"file_download_with_user_auth": {false}}},
			},
			{
				Name: "file_record_url", DisplayName: "File Record URL", Type: plugin.TypeString, Required: true,
				Description: "URL of the record the file was uploaded to",
				Display:     &plugin.DisplayOptions{Show: map[string][]any{"file_download_with_user_auth": {true}}},
			},
			{
				Name: "file_name", DisplayName: "File Name", Type: plugin.TypeString, Required: true,
				Description: `Stored file name as returned by a read, e.g. "Ni92W2luv@My_Picture.jpg"`,
				Display:     showFor(ActionRetrieveFile),
			},
		},
	}
}

type entryParam struct {
	Field string `mapstructure:"field"`
	Value string `mapstructure:"value"`
}

type filterParam struct {
	Field   string `mapstructure:"field"`
	Operand string `mapstructure:"operand"`
	Value   string `mapstructure:"value"`
}

type keyValueParam struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type ragicParams struct {
	Form            string          `mapstructure:"form"`
	RecordIndex     string          `mapstructure:"record_index"`
	Method          string          `mapstructure:"method"`
	JSONBody        any             `mapstructure:"json_body"`
	Entries         []entryParam    `mapstructure:"entries"`
	ShowSubtables   bool            `mapstructure:"show_subtables"`
	IgnoreMasked    bool            `mapstructure:"ignore_masked"`
	Limit           int             `mapstructure:"limit"`
	Offset          int             `mapstructure:"offset"`
	Filters         []filterParam   `mapstructure:"filters"`
	OtherParameters []keyValueParam `mapstructure:"other_parameters"`

	DoFormula      bool `mapstructure:"do_formula"`
	DoDefaultValue bool `mapstructure:"do_default_value"`
	DoLinkLoad     bool `mapstructure:"do_link_load"`
	DoWorkflow     bool `mapstructure:"do_workflow"`
	CheckLock      bool `mapstructure:"check_lock"`
	Notification   bool `mapstructure:"notification"`

	ButtonID string `mapstructure:"button_id"`

	FileWithUserAuth bool   `mapstructure:"file_download_with_user_auth"`
	AccountName      string `mapstructure:"account_name"`
	FileRecordURL    string `mapstructure:"file_record_url"`
	FileName         string `mapstructure:"file_name"`
}

func (p ragicParams) recordIndex() (int, error) {
	return ragic.ParseRecordIndex(p.RecordIndex)
}

// body builds the write payload: the JSON body in json mode, the entries folded
// into one object in field mode.
func (p ragicParams) body() (any, error) {
	if p.Method == MethodField {
		body := make(map[string]any, len(p.Entries))
		for _, e := range p.Entries {
			body[e.Field] = e.Value
		}
		return body, nil
	}

	switch b := p.JSONBody.(type) {
	case nil:
		return map[string]any{}, nil
	case string:
		if strings.TrimSpace(b) == "" {
			return map[string]any{}, nil
		}
		var v any
		if err := json.Unmarshal([]byte(b), &v); err != nil {
			return nil, fmt.Errorf("json_body is not valid JSON: %w", err)
		}
		return v, nil
	default:
		return b, nil
	}
}

func (p ragicParams) writeOptions() ragic.WriteOptions {
	return ragic.WriteOptions{
		DoFormula:        p.DoFormula,
		DoDefaultValue:   p.DoDefaultValue,
		DoLinkLoad:       p.DoLinkLoad,
		DoWorkflow:       p.DoWorkflow,
		CheckLock:        p.CheckLock,
		SkipNotification: !p.Notification,
	}
}

func (p ragicParams) readRequest() ragic.ReadRequest {
	req := ragic.ReadRequest{
		Form:          p.Form,
		Limit:         p.Limit,
		Offset:        p.Offset,
		HideSubtables: !p.ShowSubtables,
		IgnoreMasked:  p.IgnoreMasked,
	}
	for _, f := range p.Filters {
		operand := f.Operand
		if operand == "" {
			operand = "eq"
		}
		req.Filters = append(req.Filters, ragic.Filter{Field: f.Field, Operand: operand, Value: f.Value})
	}
	for _, kv := range p.OtherParameters {
		req.Params = append(req.Params, ragic.Param{Key: kv.Key, Value: kv.Value})
	}
	return req
}

// decodeParams applies schema defaults, validates visible parameters and
// decodes them into typed parameters.
func decodeParams(desc plugin.Description, action string, input map[string]any, out any) error {
	params := make(map[string]any, len(input)+1)
	for k, v := range input {
		params[k] = v
	}
	params[plugin.ActionParameter] = action
	params = desc.ApplyDefaults(params)

	if problems := desc.ValidateParameters(params); len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

func (n *RagicNode) Execute(ctx context.Context, action string, input map[string]any) (*types.StepResult, error) {
	if n.err != nil {
		return nil, fmt.Errorf("ragic node: %w", n.err)
	}
	if !plugin.HasAction(n, action) {
		return nil, fmt.Errorf("ragic node: unknown action %q", action)
	}

	var p ragicParams
	if err := decodeParams(n.Description(), action, input, &p); err != nil {
		return nil, fmt.Errorf("ragic node: %w", err)
	}

	items, err := n.run(ctx, action, p)
	if err != nil {
		return nil, fmt.Errorf("ragic node: %s: %w", action, err)
	}
	return itemsResult(items), nil
}

func (n *RagicNode) run(ctx context.Context, action string, p ragicParams) ([]ragic.Item, error) {
	switch action {
	case ActionRead:
		return n.client.Read(ctx, p.readRequest())

	case ActionReadSingle:
		idx, err := p.recordIndex()
		if err != nil {
			return nil, err
		}
		req := p.readRequest()
		req.RecordIndex = &idx
		return n.client.Read(ctx, req)

	case ActionCreate, ActionUpdate:
		body, err := p.body()
		if err != nil {
			return nil, err
		}
		req := ragic.WriteRequest{Form: p.Form, Body: body, Options: p.writeOptions()}
		if action == ActionUpdate {
			idx, err := p.recordIndex()
			if err != nil {
				return nil, err
			}
			req.RecordIndex = &idx
		}
		return n.client.Write(ctx, req)

	case ActionDelete:
		idx, err := p.recordIndex()
		if err != nil {
			return nil, err
		}
		return n.client.Delete(ctx, p.Form, idx)

	case ActionButton:
		idx, err := p.recordIndex()
		if err != nil {
			return nil, err
		}
		return n.client.ExecuteActionButton(ctx, p.Form, idx, p.ButtonID)

	case ActionRetrieveFile:
		file, err := n.client.RetrieveFile(ctx, ragic.FileRequest{
			FileName:     p.FileName,
			AccountName:  p.AccountName,
			RecordURL:    p.FileRecordURL,
			WithUserAuth: p.FileWithUserAuth,
		})
		if err != nil {
			return nil, err
		}
		return []ragic.Item{ragic.FileItem(file)}, nil
	}
	return nil, fmt.Errorf("unknown action %q", action)
}

// LoadOptions fills the form and field dropdowns from the server.
func (n *RagicNode) LoadOptions(ctx context.Context, method string, params map[string]any) ([]plugin.Option, error) {
	if n.err != nil {
		return nil, fmt.Errorf("ragic node: %w", n.err)
	}

	var (
		options []ragic.Option
		err     error
	)
	switch method {
	case LoadForms:
		options, err = n.client.ListForms(ctx)
	case LoadFields:
		form := ""
		if v, ok := params["form"]; ok && v != nil {
			form = fmt.Sprint(v)
		}
		options, err = n.client.ListFields(ctx, form)
	default:
		return nil, fmt.Errorf("ragic node: unknown load options method %q", method)
	}
	if err != nil {
		return nil, fmt.Errorf("ragic node: loading %s: %w", method, err)
	}

	out := make([]plugin.Option, len(options))
	for i, o := range options {
		out[i] = plugin.Option{Name: o.Name, Value: o.Value}
	}
	return out, nil
}

// CheckCredentials verifies the API key against the server.
func (n *RagicNode) CheckCredentials(ctx context.Context) error {
	if n.err != nil {
		return fmt.Errorf("ragic node: %w", n.err)
	}
	return n.client.CheckCredentials(ctx)
}
