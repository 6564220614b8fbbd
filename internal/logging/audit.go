package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one kind of mutation recorded in the audit trail.
type AuditEventType string

const (
	// Run lifecycle
	AuditRunStart AuditEventType = "run_start"
	AuditRunEnd   AuditEventType = "run_end"

	// Scaffolding
	AuditDirCreate  AuditEventType = "dir_create"
	AuditSeedCopy   AuditEventType = "seed_copy"
	AuditSeedFailed AuditEventType = "seed_failed"

	// Source mutations
	AuditImportEnsure    AuditEventType = "import_ensure"
	AuditRegistryRepair  AuditEventType = "registry_repair"
	AuditPropertyMerge   AuditEventType = "property_merge"
	AuditImportsOrganize AuditEventType = "imports_organize"

	// Persistence
	AuditFileWrite AuditEventType = "file_write"
	AuditFileSkip  AuditEventType = "file_skip"
	AuditFileError AuditEventType = "file_error"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent is one JSON line of the audit trail.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`               // Unix milliseconds
	EventType  AuditEventType         `json:"event"`            // Event kind
	RunID      string                 `json:"run"`              // Correlates events of one Apply
	Collection string                 `json:"collection"`       // Collection name if applicable
	Target     string                 `json:"target"`           // Path, module or property
	Action     string                 `json:"action"`           // What happened
	Success    bool                   `json:"success"`          // Operation succeeded
	DurationMs int64                  `json:"dur_ms,omitempty"` // Duration in milliseconds
	Error      string                 `json:"error,omitempty"`  // Error message if failed
	Fields     map[string]interface{} `json:"fields,omitempty"` // Additional structured fields
	Summary    string                 `json:"summary"`          // One-line human-readable form
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger writes events scoped to one run.
type AuditLogger struct {
	runID string
}

// InitAudit opens <root>/.inject/logs/<date>_audit.jsonl. It is a no-op
// unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.jsonl", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditRun returns an audit logger whose events carry runID.
func AuditRun(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RunID == "" {
		event.RunID = a.runID
	}
	event.Summary = summarize(event)

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// summarize renders an event as event(target, action, ok).
func summarize(e AuditEvent) string {
	var b strings.Builder
	b.WriteString(string(e.EventType))
	b.WriteString("(")
	if e.Collection != "" {
		b.WriteString(e.Collection)
		b.WriteString(", ")
	}
	b.WriteString(singleLine(e.Target))
	if e.Action != "" {
		b.WriteString(", ")
		b.WriteString(e.Action)
	}
	if e.Success {
		b.WriteString(", ok)")
	} else {
		b.WriteString(", failed)")
	}
	if e.Error != "" {
		b.WriteString(": ")
		b.WriteString(singleLine(e.Error))
	}
	return b.String()
}

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(s)
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// RunStart records the start of an Apply over the given collections.
func (a *AuditLogger) RunStart(configPath string, collections []string) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		Target:    configPath,
		Success:   true,
		Fields:    map[string]interface{}{"collections": collections},
	})
}

// RunEnd records the end of an Apply.
func (a *AuditLogger) RunEnd(configPath string, changed bool, duration time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditRunEnd,
		Target:     configPath,
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
		Fields:     map[string]interface{}{"changed": changed},
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// Scaffold records a directory creation or seed copy.
func (a *AuditLogger) Scaffold(event AuditEventType, collection, path string, err error) {
	e := AuditEvent{EventType: event, Collection: collection, Target: path, Success: err == nil}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// Mutation records an import, registry or property change in the source.
func (a *AuditLogger) Mutation(event AuditEventType, collection, target, action string) {
	a.Log(AuditEvent{
		EventType:  event,
		Collection: collection,
		Target:     target,
		Action:     action,
		Success:    true,
	})
}

// FileOp records the persist step.
func (a *AuditLogger) FileOp(op AuditEventType, path string, size int, err error) {
	e := AuditEvent{
		EventType: op,
		Target:    path,
		Success:   err == nil,
		Fields:    map[string]interface{}{"size": size},
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}
