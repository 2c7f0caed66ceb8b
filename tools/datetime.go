package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ============================================================================
// BUILT-IN: CURRENT TIME
// ============================================================================

// Argument strings longer than this are rejected outright.
const maxArgLength = 20

// Shell metacharacters are never valid in tool argument values; their
// presence means the model produced something that must not reach any
// interpreter downstream.
const blockedArgChars = "/\\;&|`$()<>"

var (
	allowedTimeFormats = map[string]bool{"datetime": true, "date": true, "time": true, "iso": true}
	allowedTimezones   = map[string]bool{"utc": true, "local": true}
)

type currentTimeArgs struct {
	Format   string `json:"format,omitempty" jsonschema_description:"Time format: datetime, date, time or iso. Defaults to datetime."`
	Timezone string `json:"timezone,omitempty" jsonschema_description:"Timezone: utc or local. Defaults to local."`
}

// CurrentTimeTool returns the current time in a constrained format.
// It doubles as the reference for the validation contract every local
// tool follows: allow-listed values, bounded length, no shell
// metacharacters.
type CurrentTimeTool struct {
	now func() time.Time
}

func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{now: time.Now}
}

func (t *CurrentTimeTool) GetName() string { return "get_current_time" }

func (t *CurrentTimeTool) GetDescription() string {
	return "현재 시각을 반환합니다. format: datetime|date|time|iso, timezone: utc|local"
}

func (t *CurrentTimeTool) Schema() map[string]any {
	return SchemaFor(&currentTimeArgs{})
}

// checkArgString enforces the bounds shared by all string arguments.
func checkArgString(name, value string) error {
	if len(value) > maxArgLength {
		return fmt.Errorf("argument %q too long (%d chars)", name, len(value))
	}
	if strings.ContainsAny(value, blockedArgChars) {
		return fmt.Errorf("argument %q contains forbidden characters", name)
	}
	return nil
}

func stringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", name)
	}
	if err := checkArgString(name, s); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

func (t *CurrentTimeTool) Execute(_ context.Context, args map[string]any) (string, error) {
	format, err := stringArg(args, "format")
	if err != nil {
		return "", err
	}
	timezone, err := stringArg(args, "timezone")
	if err != nil {
		return "", err
	}

	// Unknown values inside the bounds coerce silently to the default.
	if format != "" && !allowedTimeFormats[format] {
		slog.Warn("unknown time format, using default", "format", format)
		format = "datetime"
	}
	if timezone != "" && !allowedTimezones[timezone] {
		slog.Warn("unknown timezone, using default", "timezone", timezone)
		timezone = "local"
	}

	now := t.now()
	if timezone == "utc" {
		now = now.UTC()
	}

	switch format {
	case "date":
		return now.Format("2006-01-02"), nil
	case "time":
		return now.Format("15:04:05"), nil
	case "iso":
		return now.Format(time.RFC3339), nil
	default: // "datetime" or unset
		return now.Format("2006-01-02 15:04:05"), nil
	}
}
