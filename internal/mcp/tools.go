package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
)

type publishEventInput struct {
	UserID         string `json:"user_id" jsonschema:"participant user ID"`
	StudyID        string `json:"study_id,omitempty" jsonschema:"study ID; omit for a global event"`
	ObjectType     string `json:"object_type" jsonschema:"ENROLLMENT, CREATED_ON, TIMELINE_RETRIEVED, STUDY_START_DATE, INSTALL_LINK_SENT, SESSION, ASSESSMENT or CUSTOM"`
	ObjectID       string `json:"object_id,omitempty" jsonschema:"session guid, assessment ID or custom event key"`
	Timestamp      string `json:"timestamp" jsonschema:"RFC 3339 instant of the event"`
	ClientTimeZone string `json:"client_time_zone,omitempty" jsonschema:"IANA time zone of the client"`
}

type recentEventsInput struct {
	UserID  string `json:"user_id" jsonschema:"participant user ID"`
	StudyID string `json:"study_id,omitempty" jsonschema:"study ID; omit for global events"`
}

type eventHistoryInput struct {
	UserID   string `json:"user_id" jsonschema:"participant user ID"`
	StudyID  string `json:"study_id,omitempty" jsonschema:"study ID; omit for global events"`
	EventID  string `json:"event_id" jsonschema:"event ID such as enrollment or custom:baseline"`
	Offset   int    `json:"offset,omitempty" jsonschema:"number of entries to skip"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"entries per page, 5 to 100"`
}

type deleteCustomEventInput struct {
	UserID  string `json:"user_id" jsonschema:"participant user ID"`
	StudyID string `json:"study_id,omitempty" jsonschema:"study ID; omit for a global event"`
	EventID string `json:"event_id" jsonschema:"custom event key, with or without the custom: prefix"`
}

type createParticipantVersionInput struct {
	HealthCode   string            `json:"health_code" jsonschema:"participant health code"`
	DataGroups   []string          `json:"data_groups,omitempty"`
	Languages    []string          `json:"languages,omitempty"`
	SharingScope string            `json:"sharing_scope,omitempty" jsonschema:"NO_SHARING, SPONSORS_AND_PARTNERS or ALL_QUALIFIED_RESEARCHERS"`
	StudyIDs     []string          `json:"study_ids,omitempty"`
	ExternalIDs  map[string]string `json:"external_ids,omitempty" jsonschema:"external ID per study ID"`
	TimeZone     string            `json:"time_zone,omitempty" jsonschema:"IANA zone or fixed offset used to derive the stored offset"`
}

type getParticipantVersionInput struct {
	HealthCode string `json:"health_code" jsonschema:"participant health code"`
	Version    int    `json:"version,omitempty" jsonschema:"version number; omit for the latest"`
}

type getAppConfigInput struct{}

type deleteResult struct {
	Deleted bool `json:"deleted"`
}

type eventList struct {
	Items []event.StudyActivityEvent `json:"items"`
}

// registerTools adds every tool to server.
func registerTools(server *sdkmcp.Server, services Services, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &tools{services: services, logger: logger}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "publish_event",
		Description: "Publish a study activity event. Returns published=false when the update policy keeps the existing value.",
	}, t.publishEvent)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_recent_events",
		Description: "Get the most recent event per event ID for a study, or the global events when study_id is omitted",
	}, t.getRecentEvents)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_event_history",
		Description: "Page through every accepted publish of one event ID, newest first",
	}, t.getEventHistory)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_custom_event",
		Description: "Delete a declared custom event and its history",
	}, t.deleteCustomEvent)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_participant_version",
		Description: "Record the participant's attributes as a new version unless they equal the latest version",
	}, t.createParticipantVersion)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_participant_version",
		Description: "Get one participant version, or the latest when version is omitted",
	}, t.getParticipantVersion)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_app_config",
		Description: "Get the custom events and automatic custom event rules of the current app",
	}, t.getAppConfig)
}

type tools struct {
	services Services
	logger   *slog.Logger
}

func (t *tools) publishEvent(ctx context.Context, _ *sdkmcp.CallToolRequest, in publishEventInput) (*sdkmcp.CallToolResult, any, error) {
	ts, err := time.Parse(time.RFC3339, in.Timestamp)
	if err != nil {
		return t.fail(ctx, "publish_event", invalidArgument("timestamp must be RFC 3339: %v", err))
	}
	result, err := t.services.Events.Publish(ctx, event.Request{
		AppID:          getAppID(ctx),
		StudyID:        in.StudyID,
		UserID:         in.UserID,
		ObjectType:     event.ObjectType(in.ObjectType),
		ObjectID:       in.ObjectID,
		Timestamp:      ts,
		ClientTimeZone: in.ClientTimeZone,
	})
	if err != nil {
		return t.fail(ctx, "publish_event", err)
	}
	return t.ok(result)
}

func (t *tools) getRecentEvents(ctx context.Context, _ *sdkmcp.CallToolRequest, in recentEventsInput) (*sdkmcp.CallToolResult, any, error) {
	var (
		events []event.StudyActivityEvent
		err    error
	)
	if in.StudyID == "" {
		events, err = t.services.Events.GetRecentGlobal(ctx, getAppID(ctx), in.UserID)
	} else {
		events, err = t.services.Events.GetRecent(ctx, getAppID(ctx), in.StudyID, in.UserID)
	}
	if err != nil {
		return t.fail(ctx, "get_recent_events", err)
	}
	return t.ok(eventList{Items: events})
}

func (t *tools) getEventHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, in eventHistoryInput) (*sdkmcp.CallToolResult, any, error) {
	page, err := t.services.Events.GetHistory(ctx, event.HistoryQuery{
		AppID:    getAppID(ctx),
		UserID:   in.UserID,
		StudyID:  in.StudyID,
		EventID:  in.EventID,
		Offset:   in.Offset,
		PageSize: in.PageSize,
	})
	if err != nil {
		return t.fail(ctx, "get_event_history", err)
	}
	return t.ok(page)
}

func (t *tools) deleteCustomEvent(ctx context.Context, _ *sdkmcp.CallToolRequest, in deleteCustomEventInput) (*sdkmcp.CallToolResult, any, error) {
	deleted, err := t.services.Events.DeleteCustomEvent(ctx, event.Request{
		AppID:      getAppID(ctx),
		StudyID:    in.StudyID,
		UserID:     in.UserID,
		ObjectType: event.ObjectCustom,
		ObjectID:   in.EventID,
	})
	if err != nil {
		return t.fail(ctx, "delete_custom_event", err)
	}
	return t.ok(deleteResult{Deleted: deleted})
}

func (t *tools) createParticipantVersion(ctx context.Context, _ *sdkmcp.CallToolRequest, in createParticipantVersionInput) (*sdkmcp.CallToolResult, any, error) {
	var tz *time.Location
	if in.TimeZone != "" {
		loc, err := participant.LoadZone(in.TimeZone)
		if err != nil {
			return t.fail(ctx, "create_participant_version", err)
		}
		tz = loc
	}
	result, err := t.services.Versions.CreateFromParticipant(ctx, getAppID(ctx), participant.Participant{
		HealthCode:   in.HealthCode,
		DataGroups:   in.DataGroups,
		Languages:    in.Languages,
		SharingScope: participant.SharingScope(in.SharingScope),
		StudyIDs:     in.StudyIDs,
		ExternalIDs:  in.ExternalIDs,
	}, tz)
	if err != nil {
		return t.fail(ctx, "create_participant_version", err)
	}
	return t.ok(result)
}

func (t *tools) getParticipantVersion(ctx context.Context, _ *sdkmcp.CallToolRequest, in getParticipantVersionInput) (*sdkmcp.CallToolResult, any, error) {
	var (
		v   *participant.Version
		err error
	)
	if in.Version == 0 {
		v, err = t.services.Versions.GetLatest(ctx, getAppID(ctx), in.HealthCode)
	} else {
		v, err = t.services.Versions.Get(ctx, getAppID(ctx), in.HealthCode, in.Version)
	}
	if err != nil {
		return t.fail(ctx, "get_participant_version", err)
	}
	return t.ok(v)
}

func (t *tools) getAppConfig(ctx context.Context, _ *sdkmcp.CallToolRequest, _ getAppConfigInput) (*sdkmcp.CallToolResult, any, error) {
	a, err := t.services.Apps.Get(ctx, getAppID(ctx))
	if err != nil {
		return t.fail(ctx, "get_app_config", err)
	}
	return t.ok(a)
}

// ok renders v as the JSON text content of a successful result.
func (t *tools) ok(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// fail renders err as a tool error carrying an APIError payload, so clients
// can branch on its code.
func (t *tools) fail(ctx context.Context, tool string, err error) (*sdkmcp.CallToolResult, any, error) {
	apiErr := MapError(err)
	if apiErr.Code == "INTERNAL" {
		t.logger.Error("tool failed", "tool", tool, "app_id", getAppID(ctx), "error", err)
	}
	data, _ := json.Marshal(apiErr)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
