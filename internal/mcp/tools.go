package mcp

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetRecentSessions = mcp.NewTool("get_recent_sessions",
	mcp.WithDescription("List completed workout sessions in a time range. Returns one summary row per session including duration, set counts, and whether the session was ended early."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetSessionDetail = mcp.NewTool("get_session_detail",
	mcp.WithDescription("Get the full log of one workout session: every exercise with its main sets, failure set, and notes."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Per-session history of one exercise, newest first. Returns the sets performed each time the exercise appeared in a completed session."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (case-insensitive exact match, e.g. 'Barbell Squat')")),
	mcp.WithString("limit", mcp.Description("Maximum sessions to return. Defaults to 10.")),
)

var toolGetVolumeSummary = mcp.NewTool("get_volume_summary",
	mcp.WithDescription("Aggregated training volume per period: session count, sets, reps, tonnage (weight x reps), and failure set count."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to 'week'."), mcp.Enum("day", "week", "month")),
)

var toolGetProgressionSuggestion = mcp.NewTool("get_progression_suggestion",
	mcp.WithDescription("Progressive overload suggestions for every exercise in a template, based on recent session history. Suggests weight increases, test sets, or holding steady, with a reason per exercise."),
	mcp.WithString("template_id", mcp.Required(), mcp.Description("Template UUID")),
)

// --- Tool handlers ---

func (h *handlers) getRecentSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)

	rows, err := h.ds.QuerySessions(ctx, start, end, uid)
	if err != nil {
		h.log.Error("mcp get_recent_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid session_id: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)

	rec, err := h.ds.GetSession(ctx, sessionID, uid)
	if err != nil {
		h.log.Error("mcp get_session_detail", "error", err)
		return mcp.NewToolResultError("session not found: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	limit := 10
	if limitStr := req.GetString("limit", ""); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			return mcp.NewToolResultError("limit must be a positive integer"), nil
		}
		limit = n
	}

	uid := UserIDFromContext(ctx)

	history, err := h.ds.RecentExerciseHistory(ctx, uid, exercise, limit)
	if err != nil {
		h.log.Error("mcp get_exercise_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(history)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getVolumeSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "week")
	uid := UserIDFromContext(ctx)

	periods, err := h.ds.GetVolumeSummary(ctx, start, end, bucket, uid)
	if err != nil {
		h.log.Error("mcp get_volume_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(periods)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgressionSuggestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError("template_id parameter is required"), nil
	}
	templateID, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid template_id: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)

	t, err := h.ds.GetTemplate(ctx, templateID, uid)
	if err != nil {
		h.log.Error("mcp get_progression_suggestion", "error", err)
		return mcp.NewToolResultError("template not found: " + err.Error()), nil
	}

	suggestions := h.advisor.SuggestTemplate(ctx, uid, *t)

	result, err := mcp.NewToolResultJSON(map[string]any{
		"template":    t.Name,
		"suggestions": suggestions,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
