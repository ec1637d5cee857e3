package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `studyevents records study activity events and participant versions for one app.

Core concepts:
- Activity event: a timestamped milestone for a user, scoped to a study or global. Its event ID is derived from the object type (enrollment, session:<guid>, assessment:<id>, custom:<key>).
- Update type: IMMUTABLE keeps the first value, MUTABLE takes any new value, FUTURE_ONLY takes only later timestamps. A rejected publish is not an error; it returns published=false.
- Automatic custom event: an app rule "key -> origin:ISO8601 period" that publishes custom:key at origin timestamp + period whenever the origin is published.
- Participant version: a numbered snapshot of a participant's data groups, languages, sharing scope, study memberships and time zone offset. A new version is stored only when something changed.

Typical workflow:
1) get_app_config to see declared custom events and automatic rules.
2) publish_event with an RFC 3339 timestamp.
3) get_recent_events to read the current value per event ID; get_event_history for the full record.
4) create_participant_version whenever attributes may have changed; it is idempotent.

Docs:
- studyevents://docs/events
- studyevents://docs/participant-versions
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "studyevents://docs/events",
		Name:        "docs_events",
		Title:       "Study activity events",
		Description: "Event IDs, update types, automatic custom events and history.",
		Content: `# Study activity events

## Event IDs

| object_type | object_id | event_id |
|---|---|---|
| ENROLLMENT | | enrollment |
| CREATED_ON | | created_on |
| TIMELINE_RETRIEVED | | timeline_retrieved |
| STUDY_START_DATE | | study_start_date |
| INSTALL_LINK_SENT | | install_link_sent |
| SESSION | session guid | session:<guid> |
| ASSESSMENT | assessment ID | assessment:<id> |
| CUSTOM | declared key | custom:<key> |

Custom keys must be declared by the app. Their update type is the declared one; every other object type has a fixed update type that callers cannot change.

## Update types

- IMMUTABLE: the first accepted value stays.
- MUTABLE: every publish replaces the value.
- FUTURE_ONLY: only a strictly later timestamp replaces the value.

Publishing an event that the update type keeps unchanged returns ` + "`published: false`" + ` and stores nothing.

## Automatic custom events

An app rule ` + "`followup: \"baseline:P7D\"`" + ` publishes ` + "`custom:followup`" + ` at the baseline timestamp plus seven days each time ` + "`custom:baseline`" + ` is accepted. Rules chain up to a configured depth and never loop.

Publishing a study enrollment also publishes the global enrollment event.

## History

` + "`get_event_history`" + ` returns every accepted publish, newest first. ` + "`delete_custom_event`" + ` removes the event and its history.
`,
	},
	{
		URI:         "studyevents://docs/participant-versions",
		Name:        "docs_participant_versions",
		Title:       "Participant versions",
		Description: "When versions are created and what they hold.",
		Content: `# Participant versions

A participant version holds data groups, languages, sharing scope, study memberships (study ID to external ID) and a fixed time zone offset such as ` + "`-08:00`" + `.

- The first version is 1. Each new version is the latest plus one.
- A version is stored only when its attributes differ from the latest one. Data groups compare as a set; languages compare in order.
- Every version of a participant shares the created_on of version 1.

Call ` + "`create_participant_version`" + ` freely; an unchanged participant returns ` + "`created: false`" + ` and the latest version.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
