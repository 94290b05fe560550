package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// I18nText is a localized string from the tool schema
type I18nText struct {
	EnUS string `json:"en_US"`
}

// ToolParam describes one parameter of a tool
type ToolParam struct {
	Name        string   `json:"name"`
	Label       I18nText `json:"label"`
	Description I18nText `json:"human_description"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
}

// ToolSpec describes one tool from the catalog endpoint
type ToolSpec struct {
	Name        string      `json:"name"`
	Label       I18nText    `json:"label"`
	Description I18nText    `json:"description"`
	Params      []ToolParam `json:"parameters"`
}

// toolListResponse is the catalog endpoint's payload
type toolListResponse struct {
	Tools []ToolSpec `json:"tools"`
	Count int        `json:"count"`
}

// InvokeMessage is one entry of a finished run's message stream
type InvokeMessage struct {
	Kind string          `json:"kind"`
	Text string          `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
	File string          `json:"file,omitempty"`
}

// InvokeResultFile describes one downloadable output of a run
type InvokeResultFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// InvokeResult is the envelope a synchronous invocation returns.
// Failed runs come back with status 422 but carry the same shape.
type InvokeResult struct {
	Invocation string             `json:"invocation"`
	Tool       string             `json:"tool"`
	Status     string             `json:"status"`
	Error      string             `json:"error"`
	Summary    string             `json:"summary"`
	PageCount  int                `json:"pageCount"`
	DurationMS int64              `json:"durationMs"`
	Messages   []InvokeMessage    `json:"messages"`
	Results    []InvokeResultFile `json:"results"`
}

// ToolsPage lets the user pick a tool, upload a PDF and run it
type ToolsPage struct {
	app.Compo
	tools       []ToolSpec
	selected    string
	paramValues map[string]string
	loading     bool
	running     bool
	error       string
	result      *InvokeResult
	jobStarted  string
}

// OnMount is called when the component is mounted
func (t *ToolsPage) OnMount(ctx app.Context) {
	t.loading = true
	t.paramValues = make(map[string]string)
	t.fetchTools(ctx)
}

// fetchTools loads the tool catalog from the API
func (t *ToolsPage) fetchTools(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/tools"))

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonStr := app.Window().Get("JSON").Call("stringify", args[0]).String()

				var resp toolListResponse
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
						t.error = fmt.Sprintf("Failed to parse tool catalog: %v", err)
					} else {
						t.tools = resp.Tools
					}
					t.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				t.error = "Network error: Could not connect to server"
				t.loading = false
			})
			return nil
		}))
	})
}

// Render renders the tools page
func (t *ToolsPage) Render() app.UI {
	var content app.UI

	if t.loading {
		content = app.Div().Class("loading").Body(app.Text("Loading tools..."))
	} else if len(t.tools) == 0 && t.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + t.error))
	} else {
		content = app.Div().Class("tools-layout").Body(
			t.renderToolList(),
			app.If(t.selected != "",
				func() app.UI {
					return app.Div().Class("tool-run-panel").Body(
						t.renderInvokeForm(),
						t.renderRunStatus(),
					)
				},
			),
		)
	}

	return app.Div().
		Class("tools-page").
		Body(
			app.H2().Text("Run Tools"),
			app.P().Text("Pick a tool, upload a PDF and run it. Results are recorded and their output files can be downloaded afterwards."),
			content,
		)
}

// renderToolList renders the tool catalog
func (t *ToolsPage) renderToolList() app.UI {
	return app.Div().Class("tool-list").Body(
		app.Range(t.tools).Slice(func(i int) app.UI {
			tool := t.tools[i]
			cardClass := "tool-card"
			if tool.Name == t.selected {
				cardClass += " tool-card-selected"
			}
			return app.Div().
				Class(cardClass).
				Body(
					app.H3().Text(toolLabel(tool)),
					app.P().Class("tool-description").Text(tool.Description.EnUS),
					app.Button().
						Class("btn-primary").
						Disabled(t.running).
						OnClick(t.onSelectTool(tool.Name)).
						Body(app.Text("Select")),
				)
		}),
	)
}

// renderInvokeForm renders the upload form for the selected tool
func (t *ToolsPage) renderInvokeForm() app.UI {
	tool := t.selectedTool()
	if tool == nil {
		return app.Div()
	}

	var paramInputs []app.UI
	for i := range tool.Params {
		param := tool.Params[i]
		if param.Type == "file" {
			continue
		}

		inputType := "text"
		if param.Type == "number" {
			inputType = "number"
		}

		name := param.Name
		paramInputs = append(paramInputs,
			app.Div().Class("form-field").Body(
				app.Label().Body(
					app.Text(param.Label.EnUS),
					app.If(param.Required,
						func() app.UI {
							return app.Span().Class("required-marker").Text(" *")
						},
					),
				),
				app.Input().
					Type(inputType).
					Class("param-input").
					Placeholder(param.Description.EnUS).
					Value(t.paramValues[name]).
					OnInput(func(ctx app.Context, e app.Event) {
						t.paramValues[name] = ctx.JSSrc().Get("value").String()
					}),
			),
		)
	}

	runText := "Run"
	if t.running {
		runText = "Running..."
	}

	return app.Div().Class("invoke-form").Body(
		app.H3().Text("Run "+toolLabel(*tool)),
		app.Div().Class("form-field").Body(
			app.Label().Text("PDF file *"),
			app.Input().
				Type("file").
				ID("tool-file-input").
				Accept(".pdf,application/pdf"),
		),
		app.Div().Class("form-params").Body(paramInputs...),
		app.Div().Class("form-actions").Body(
			app.Button().
				Class("btn-primary").
				Disabled(t.running).
				OnClick(t.onRunClick(false)).
				Body(app.Text(runText)),
			app.Button().
				Class("btn-secondary").
				Disabled(t.running).
				OnClick(t.onRunClick(true)).
				Body(app.Text("Run in background")),
		),
	)
}

// renderRunStatus renders the outcome of the last run
func (t *ToolsPage) renderRunStatus() app.UI {
	if t.running {
		return app.Div().Class("loading").Body(
			app.Text("Running tool..."),
		)
	}

	if t.error != "" {
		return app.Div().Class("error").Body(
			app.Text("Error: " + t.error),
		)
	}

	if t.jobStarted != "" {
		return app.Div().Class("success").Body(
			app.Text("Job started: "+t.jobStarted+" "),
			app.A().Href("/jobs").Text("Watch it on the Jobs page"),
		)
	}

	if t.result != nil {
		return t.renderResult()
	}

	return app.Div()
}

// renderResult renders one finished invocation envelope
func (t *ToolsPage) renderResult() app.UI {
	result := t.result

	icon := "✅"
	statusClass := "run-result run-completed"
	if result.Status != "completed" {
		icon = "❌"
		statusClass = "run-result run-failed"
	}

	var messageItems []app.UI
	for i := range result.Messages {
		msg := result.Messages[i]
		switch msg.Kind {
		case "text":
			messageItems = append(messageItems, app.Li().Class("message-text").Text(msg.Text))
		case "json":
			messageItems = append(messageItems, app.Li().Class("message-json").Body(
				app.Pre().Text(string(msg.JSON)),
			))
		case "blob":
			messageItems = append(messageItems, app.Li().Class("message-file").Text("File: "+msg.File))
		}
	}

	return app.Div().Class(statusClass).Body(
		app.H3().Text(fmt.Sprintf("%s %s - %s", icon, result.Tool, result.Status)),
		app.If(result.Summary != "",
			func() app.UI {
				return app.P().Class("run-summary").Text(result.Summary)
			},
		),
		app.If(result.Error != "",
			func() app.UI {
				return app.P().Class("run-error").Text(result.Error)
			},
		),
		app.P().Class("run-meta").Text(
			fmt.Sprintf("%d pages · %s", result.PageCount, formatDuration(result.DurationMS)),
		),
		app.If(len(messageItems) > 0,
			func() app.UI {
				return app.Ul().Class("run-messages").Body(messageItems...)
			},
		),
		app.If(len(result.Results) > 0,
			func() app.UI {
				return app.Div().Class("run-downloads").Body(
					app.H4().Text("Output files"),
					app.Range(result.Results).Slice(func(i int) app.UI {
						file := result.Results[i]
						return app.A().
							Href(BuildAPIURL(file.URL)).
							Class("result-link").
							Target("_blank").
							Body(app.Text(fmt.Sprintf("%s (%s)", file.Name, formatBytes(file.Size))))
					}),
				)
			},
		),
	)
}

// selectedTool returns the spec of the currently selected tool
func (t *ToolsPage) selectedTool() *ToolSpec {
	for i := range t.tools {
		if t.tools[i].Name == t.selected {
			return &t.tools[i]
		}
	}
	return nil
}

// onSelectTool handles picking a tool from the catalog
func (t *ToolsPage) onSelectTool(name string) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		t.selected = name
		t.paramValues = make(map[string]string)
		t.result = nil
		t.error = ""
		t.jobStarted = ""
	}
}

// onRunClick handles the run buttons
func (t *ToolsPage) onRunClick(background bool) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		t.runTool(ctx, background)
	}
}

// runTool uploads the chosen file and runs the selected tool
func (t *ToolsPage) runTool(ctx app.Context, background bool) {
	fileInput := app.Window().GetElementByID("tool-file-input")
	if !fileInput.Truthy() {
		t.error = "File input not found"
		return
	}
	files := fileInput.Get("files")
	if !files.Truthy() || files.Get("length").Int() == 0 {
		t.error = "Please choose a PDF file first"
		return
	}

	formData := app.Window().Get("FormData").New()
	formData.Call("append", "file", files.Index(0))
	for name, value := range t.paramValues {
		if value != "" {
			formData.Call("append", name, value)
		}
	}

	endpoint := fmt.Sprintf("/api/tools/%s/invoke", t.selected)
	if background {
		endpoint = fmt.Sprintf("/api/tools/%s/jobs", t.selected)
	}

	t.running = true
	t.error = ""
	t.result = nil
	t.jobStarted = ""

	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL(endpoint), map[string]interface{}{
			"method": "POST",
			"body":   formData,
		})

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
				if len(args) == 0 {
					return nil
				}

				jsonStr := app.Window().Get("JSON").Call("stringify", args[0]).String()

				ctx.Dispatch(func(ctx app.Context) {
					t.running = false

					if background {
						if status >= 200 && status < 300 {
							var started struct {
								Message string `json:"message"`
								JobID   string `json:"jobId"`
							}
							if err := json.Unmarshal([]byte(jsonStr), &started); err != nil {
								t.error = "Failed to parse response: " + err.Error()
								return
							}
							t.jobStarted = started.JobID
						} else {
							t.error = apiError(jsonStr, status)
						}
						return
					}

					// 200 and 422 both carry the invocation envelope;
					// 422 is a recorded run whose tool failed.
					if status == 200 || status == 422 {
						var result InvokeResult
						if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
							t.error = "Failed to parse response: " + err.Error()
							return
						}
						t.result = &result
					} else {
						t.error = apiError(jsonStr, status)
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			ctx.Dispatch(func(ctx app.Context) {
				t.running = false
				t.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}

// apiError extracts the error message from an API error payload
func apiError(jsonStr string, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("Request failed (status: %d)", status)
}

// toolLabel returns the display name for a tool spec
func toolLabel(tool ToolSpec) string {
	if tool.Label.EnUS != "" {
		return tool.Label.EnUS
	}
	return tool.Name
}

// formatBytes formats a byte count in human readable form
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
