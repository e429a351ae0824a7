package common

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// Global variable to control debug output
var VerboseMode bool = false

func init() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// SetLogOutput redirects all log output (tests capture it with a buffer)
func SetLogOutput(w io.Writer) {
	log.SetOutput(w)
}

// Error messages
const (
	ErrFailedToOpenImage        = "failed to open image"
	ErrFailedToWriteImage       = "failed to write output image"
	ErrFailedToLocateArchive    = "failed to locate archive"
	ErrFailedToLocateExecutable = "failed to locate executable"
	ErrFailedToLoadDescriptions = "failed to load area descriptions"
	ErrFailedToLoadPatches      = "failed to load executable patches"
	ErrFailedToLoadMonsters     = "failed to load monster stat files"
	ErrFailedToParseDescription = "failed to parse area description"
	ErrFailedToEditArea         = "failed to edit area"
	ErrFailedToDensify          = "failed to densify area"
	ErrFailedToWriteBackup      = "failed to write backup"
	ErrFailedToWriteDescription = "failed to write area description"
	ErrFailedToWriteReport      = "failed to write report"
)

// Info messages
const (
	InfoImageLoaded          = "Image loaded: %s (%d sectors, %s)"
	InfoArchiveLocated       = "Archive located at LBA %d (%d sectors, %d bytes)"
	InfoExecutableCopies     = "Found %d executable cop(ies)"
	InfoExecutableCopy       = "  copy %d: LBA %d, %d sectors, xxh64=%016x"
	InfoAreasLoaded          = "Loaded %d area description(s) from %s"
	InfoAreaProcessed        = "%s / %s: %d region(s) changed"
	InfoRegionChanged        = "  %s @ 0x%X: %d byte(s) changed (%d/%d bytes used)"
	InfoArchiveUnchanged     = "Archive unchanged, skipping injection"
	InfoArchiveInjected      = "Archive injected: %d sector(s) rewritten"
	InfoPatchesApplied       = "Applied %d patch(es) to %d executable cop(ies)"
	InfoMonstersPatched      = "%s: patched %d occurrence(s)"
	InfoEDCRegenerated       = "Regenerated EDC/ECC for %d sector(s)"
	InfoOutputWritten        = "Output image written: %s"
	InfoDensifyArea          = "%s - %s: %d group(s) modified, enemies %d -> %d"
	InfoDensifySpace         = "  Space used: %d/%d bytes (%.1f%%)"
	InfoBackupWritten        = "  Backup: %s"
	InfoDescriptionWritten   = "Wrote %s"
	InfoOffsetTableRewritten = "  offset table @ 0x%X: %d entr(ies) rewritten"
)

// Debug messages
const (
	DebugSectorRead      = "read LBA %d offset %d (%d bytes)"
	DebugRecordRejected  = "rejected candidate at 0x%X: %s"
	DebugGroupDecoded    = "%s group @ 0x%X: %d record(s), suffix %X"
	DebugPatchVerified   = "patch %q verified on copy @ LBA %d (offset 0x%X)"
	DebugDensifyGroup    = "group @ %s: %d -> %d record(s), hull of %d vertices"
	DebugCandidateCopy   = "candidate executable at LBA %d rejected: %v"
	DebugAreaFileSkipped = "skipping %s (sidecar)"
)

// Warning messages
const (
	WarnExecutableCopiesDiffer = "Executable copies differ before patching (fingerprints %016x vs %016x)"
	WarnHighSpaceUsage         = "High space usage in %s: %.1f%%"
	WarnMonsterNotFound        = "%s: not found in archive"
	WarnCompositionRecomputed  = "%s: composition of group %d recomputed from records"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Infof(message, args...)
	} else {
		log.Info(message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Warnf(message, args...)
	} else {
		log.Warn(message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Errorf(message, args...)
	} else {
		log.Error(message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		log.Debugf(message, args...)
	} else {
		log.Debug(message)
	}
}
