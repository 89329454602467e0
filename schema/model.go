package schema

import "time"

// Repid is a named genomic repeat locus. RepID is assigned by the store and
// is the only persistent locus identifier; RepidName is the natural key the
// spreadsheets join on and is not unique when loci are appended twice.
type Repid struct {
	RepID             uint   `gorm:"column:rep_id;primaryKey;autoIncrement" json:"rep_id"`
	RepidName         string `gorm:"column:repid_name;index" json:"repid_name"`
	Link              string `gorm:"column:link" json:"link"`
	RepeatLocation    string `gorm:"column:repeat_location" json:"repeat_location"`
	NormalRange       string `gorm:"column:normal_range" json:"normal_range"`
	IntermediateRange string `gorm:"column:intermediate_range" json:"intermediate_range"`
	FullMutationRange string `gorm:"column:full_mutation_range" json:"full_mutation_range"`
}

func (Repid) TableName() string { return "repid" }

// Disease associates a disease name with a locus. RepID is nil when the
// spreadsheet names a locus the store does not know, DiseaseName is nil when
// the sheet left the cell empty.
type Disease struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	DiseaseName *string `gorm:"column:disease_name;index" json:"disease_name"`
	RepID       *uint   `gorm:"column:rep_id;index" json:"rep_id"`
}

func (Disease) TableName() string { return "disease" }

// Region is one geographic frequency observation of a locus. A nil
// Frequency means the observation has no recorded frequency, which is
// different from zero.
type Region struct {
	ID        uint     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Latitude  float64  `gorm:"column:latitude" json:"latitude"`
	Longitude float64  `gorm:"column:longitude" json:"longitude"`
	RepID     *uint    `gorm:"column:rep_id;index" json:"rep_id"`
	Frequency *float64 `gorm:"column:frequency" json:"frequency"`
}

func (Region) TableName() string { return "region" }

// IngestRun records one execution of the ingestion pipeline.
type IngestRun struct {
	ID           uint          `gorm:"column:id;primaryKey;autoIncrement"`
	StartedAt    time.Time     `gorm:"column:started_at"`
	Duration     time.Duration `gorm:"column:duration"`
	ExecutedBy   string        `gorm:"column:executed_by"`
	Mode         string        `gorm:"column:mode"`
	Status       string        `gorm:"column:status;index"`
	ErrorMessage string        `gorm:"column:error_message"`
	Checksum     string        `gorm:"column:checksum"`
	Loci         int           `gorm:"column:loci"`
	Diseases     int           `gorm:"column:diseases"`
	Regions      int           `gorm:"column:regions"`
}

func (IngestRun) TableName() string { return "ingest_runs" }

// IngestLog is one activity line written while a run executes.
type IngestLog struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"column:timestamp;index"`
	Level     string    `gorm:"column:level"`
	Message   string    `gorm:"column:message"`
	User      string    `gorm:"column:user_name"`
	Details   string    `gorm:"column:details"`
	RunID     *uint     `gorm:"column:run_id;index"`
}

func (IngestLog) TableName() string { return "ingest_logs" }

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Log levels.
const (
	LevelInfo    = "INFO"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
	LevelSuccess = "SUCCESS"
)
