package log

import (
	"path/filepath"

	"voxelbuilder.ai/internal/sim/world"
)

// TickLogger records one entry per tick: applied commands, builder steps,
// status transitions and the state digest. Replays read it back.
type TickLogger struct{ *Rotating }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{NewRotating(TickDir(worldDir), "ticks")}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.Append(e) }

// TickDir is where a world's tick logs live.
func TickDir(worldDir string) string { return filepath.Join(worldDir, "ticks") }

// TickFiles lists a tick log directory oldest first.
func TickFiles(dir string) ([]string, error) { return Files(dir, "ticks") }

// AuditLogger records every block a builder broke or placed.
type AuditLogger struct{ *Rotating }

func NewAuditLogger(worldDir string) *AuditLogger {
	return &AuditLogger{NewRotating(filepath.Join(worldDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(e world.AuditEntry) error { return l.Append(e) }

var (
	_ world.TickLogger  = (*TickLogger)(nil)
	_ world.AuditLogger = (*AuditLogger)(nil)
)
