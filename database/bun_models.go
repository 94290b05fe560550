package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunInvocation represents the invocations table for Bun ORM
type BunInvocation struct {
	bun.BaseModel `bun:"table:invocations,alias:i"`

	ID         int       `bun:"id,pk,autoincrement"`
	ToolName   string    `bun:"tool_name,notnull"`
	FileName   string    `bun:"file_name,notnull"`
	FileHash   string    `bun:"file_hash,notnull"`
	FileSize   int64     `bun:"file_size,notnull,default:0"`
	ULID       string    `bun:"ulid,notnull,unique"` // Stored as string in DB
	Status     string    `bun:"status,notnull"`
	Summary    string    `bun:"summary,nullzero"`
	Error      string    `bun:"error,nullzero"`
	Results    string    `bun:"results,nullzero"`
	ResultDir  string    `bun:"result_dir,nullzero"`
	PageCount  int       `bun:"page_count,default:0"`
	DurationMS int64     `bun:"duration_ms,default:0"`
	InvokedAt  time.Time `bun:"invoked_at,notnull,default:current_timestamp"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToInvocation converts BunInvocation to Invocation
func (bi *BunInvocation) ToInvocation() (*Invocation, error) {
	parsedULID, err := ulid.Parse(bi.ULID)
	if err != nil {
		return nil, err
	}

	return &Invocation{
		ID:         bi.ID,
		ToolName:   bi.ToolName,
		FileName:   bi.FileName,
		FileHash:   bi.FileHash,
		FileSize:   bi.FileSize,
		ULID:       parsedULID,
		Status:     bi.Status,
		Summary:    bi.Summary,
		Error:      bi.Error,
		Results:    bi.Results,
		ResultDir:  bi.ResultDir,
		PageCount:  bi.PageCount,
		DurationMS: bi.DurationMS,
		InvokedAt:  bi.InvokedAt,
	}, nil
}

// FromInvocation converts Invocation to BunInvocation
func FromInvocation(inv *Invocation) *BunInvocation {
	return &BunInvocation{
		ID:         inv.ID,
		ToolName:   inv.ToolName,
		FileName:   inv.FileName,
		FileHash:   inv.FileHash,
		FileSize:   inv.FileSize,
		ULID:       inv.ULID.String(),
		Status:     inv.Status,
		Summary:    inv.Summary,
		Error:      inv.Error,
		Results:    inv.Results,
		ResultDir:  inv.ResultDir,
		PageCount:  inv.PageCount,
		DurationMS: inv.DurationMS,
		InvokedAt:  inv.InvokedAt,
	}
}

// BunServerConfig represents the server_config table for Bun ORM
type BunServerConfig struct {
	bun.BaseModel `bun:"table:server_config,alias:sc"`

	ID                     int       `bun:"id,pk"`
	ListenAddrIP           string    `bun:"listen_addr_ip,default:''"`
	ListenAddrPort         string    `bun:"listen_addr_port,notnull,default:'8000'"`
	WorkspacePath          string    `bun:"workspace_path,notnull,default:''"`
	ResultsPath            string    `bun:"results_path,notnull,default:''"`
	Renderer               string    `bun:"renderer,notnull,default:'pdfium'"`
	RenderServiceURL       string    `bun:"render_service_url,default:''"`
	DefaultZoom            int       `bun:"default_zoom,notnull,default:2"`
	MaxZoom                int       `bun:"max_zoom,notnull,default:8"`
	ThumbnailWidth         int       `bun:"thumbnail_width,notnull,default:1024"`
	MaxUploadMB            int       `bun:"max_upload_mb,notnull,default:100"`
	SweepInterval          int       `bun:"sweep_interval,notnull,default:30"`
	JobRetentionHours      int       `bun:"job_retention_hours,notnull,default:72"`
	ResultRetentionHours   int       `bun:"result_retention_hours,notnull,default:24"`
	RecentInvocationNumber int       `bun:"recent_invocation_number,notnull,default:20"`
	ServerAPIURL           string    `bun:"server_api_url,default:''"`
	CreatedAt              time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt              time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:"id,pk"` // ULID as string
	Type        string     `bun:"type,notnull"`
	Status      string     `bun:"status,default:'pending'"`
	Progress    int        `bun:"progress,default:0"`
	CurrentStep string     `bun:"current_step,default:''"`
	TotalSteps  int        `bun:"total_steps,default:0"`
	Message     string     `bun:"message,default:''"`
	Error       string     `bun:"error,nullzero"`
	Result      string     `bun:"result,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:          parsedULID,
		Type:        JobType(bj.Type),
		Status:      JobStatus(bj.Status),
		Progress:    bj.Progress,
		CurrentStep: bj.CurrentStep,
		TotalSteps:  bj.TotalSteps,
		Message:     bj.Message,
		Error:       bj.Error,
		Result:      bj.Result,
		CreatedAt:   bj.CreatedAt,
		UpdatedAt:   bj.UpdatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		TotalSteps:  job.TotalSteps,
		Message:     job.Message,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

// BunToolUsage represents the tool_usage table for Bun ORM
type BunToolUsage struct {
	bun.BaseModel `bun:"table:tool_usage,alias:tu"`

	ToolName        string    `bun:"tool_name,pk"`
	Invocations     int       `bun:"invocations,default:0"`
	Failures        int       `bun:"failures,default:0"`
	TotalDurationMS int64     `bun:"total_duration_ms,default:0"`
	LastUsed        time.Time `bun:"last_used,default:current_timestamp"`
}

// ToToolUsage converts BunToolUsage to ToolUsage
func (btu *BunToolUsage) ToToolUsage() *ToolUsage {
	return &ToolUsage{
		ToolName:        btu.ToolName,
		Invocations:     btu.Invocations,
		Failures:        btu.Failures,
		TotalDurationMS: btu.TotalDurationMS,
		LastUsed:        btu.LastUsed,
	}
}

// BunUsageMetadata represents the usage_metadata table for Bun ORM
type BunUsageMetadata struct {
	bun.BaseModel `bun:"table:usage_metadata,alias:um"`

	ID                    int        `bun:"id,pk"`
	LastFullRecalculation *time.Time `bun:"last_full_recalculation,nullzero"`
	TotalRunsProcessed    int        `bun:"total_runs_processed,default:0"`
	TotalToolsTracked     int        `bun:"total_tools_tracked,default:0"`
	Version               int        `bun:"version,default:1"`
	CreatedAt             time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt             time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToUsageMetadata converts BunUsageMetadata to UsageMetadata
func (bum *BunUsageMetadata) ToUsageMetadata() *UsageMetadata {
	meta := &UsageMetadata{
		TotalRunsProcessed: bum.TotalRunsProcessed,
		TotalToolsTracked:  bum.TotalToolsTracked,
		Version:            bum.Version,
	}

	if bum.LastFullRecalculation != nil {
		meta.LastRecalculation = *bum.LastFullRecalculation
	}

	return meta
}
