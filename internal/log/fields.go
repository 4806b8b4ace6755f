package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldImportID  = "import_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Health record fields
	FieldRecordType = "record_type"
	FieldRecordKind = "record_kind"
	FieldSourceName = "source_name"
	FieldUnit       = "unit"

	// Path fields
	FieldPath       = "path"
	FieldExportPath = "export_path"
	FieldDataDir    = "data_dir"

	// Volume fields
	FieldRecords    = "records"
	FieldWorkouts   = "workouts"
	FieldDuplicates = "duplicates"
	FieldSkipped    = "skipped"
)
