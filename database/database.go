package database

import (
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/drummonds/pdftoolbox/config"
	"github.com/oklog/ulid/v2"
)

// Invocation is one recorded tool run: which tool, what file it was
// given and what came out the other side.
type Invocation struct {
	ID         int
	ToolName   string
	FileName   string // name of the uploaded file as the client sent it
	FileHash   string
	FileSize   int64
	ULID       ulid.ULID // Have a smaller (than hash) id that can be used in URL's, hopefully speed things up
	Status     string
	Summary    string // first text message the tool emitted
	Error      string
	Results    string // JSON array of ResultFile entries
	ResultDir  string // folder under the results path holding the output files
	PageCount  int
	DurationMS int64
	InvokedAt  time.Time
}

// Invocation status values
const (
	InvocationStatusCompleted = "completed"
	InvocationStatusFailed    = "failed"
)

// ResultFile describes one output file saved for an invocation
type ResultFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// EncodeResults marshals result descriptors for the results column
func EncodeResults(files []ResultFile) (string, error) {
	if len(files) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeResults unmarshals the results column back into descriptors
func DecodeResults(encoded string) ([]ResultFile, error) {
	files := make([]ResultFile, 0)
	if encoded == "" {
		return files, nil
	}
	if err := json.Unmarshal([]byte(encoded), &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Repository defines database operations
type Repository interface {
	Close() error
	SaveInvocation(inv *Invocation) error
	GetInvocationByID(id int) (*Invocation, error)
	GetInvocationByULID(ulid string) (*Invocation, error)
	GetInvocationByHash(hash string) (*Invocation, error)
	GetNewestInvocations(limit int) ([]Invocation, error)
	GetNewestInvocationsWithPagination(page int, pageSize int) ([]Invocation, int, error)
	GetAllInvocations() ([]Invocation, error)
	GetInvocationsByTool(toolName string) ([]Invocation, error)
	GetInvocationsOlderThan(olderThan time.Duration) ([]Invocation, error)
	DeleteInvocation(ulid string) error
	DeleteOldInvocations(olderThan time.Duration) (int, error)
	SearchInvocations(searchTerm string) ([]Invocation, error)
	SaveConfig(config *config.ServerConfig) error
	GetConfig() (*config.ServerConfig, error)
	// Usage stats methods
	RecordToolUsage(toolName string, succeeded bool, durationMS int64) error
	GetToolUsage() ([]ToolUsage, error)
	GetTopTools(limit int) ([]ToolUsage, error)
	GetUsageMetadata() (*UsageMetadata, error)
	RecalculateToolUsage() error
	// Job tracking methods
	CreateJob(jobType JobType, message string) (*Job, error)
	UpdateJobProgress(jobID ulid.ULID, progress int, currentStep string) error
	UpdateJobStatus(jobID ulid.ULID, status JobStatus, message string) error
	UpdateJobError(jobID ulid.ULID, errorMsg string) error
	CompleteJob(jobID ulid.ULID, result string) error
	GetJob(jobID ulid.ULID) (*Job, error)
	GetRecentJobs(limit, offset int) ([]Job, error)
	GetActiveJobs() ([]Job, error)
	DeleteOldJobs(olderThan time.Duration) (int, error)
}

// FetchConfigFromDB pulls the server config from the database
func FetchConfigFromDB(db Repository) (config.ServerConfig, error) {
	serverConfig, err := db.GetConfig()
	if err != nil {
		Logger.Error("Unable to fetch server config from db", "error", err)
		return config.ServerConfig{}, err
	}
	return *serverConfig, nil
}

// WriteConfigToDB writes the serverconfig to the database for later retrieval
func WriteConfigToDB(serverConfig config.ServerConfig, db Repository) {
	serverConfig.ID = 1 // config lives in row 1
	err := db.SaveConfig(&serverConfig)
	if err != nil {
		Logger.Error("Unable to write server config to database", "error", err)
	}
}

// NewInvocation builds the record for a fresh tool run on an uploaded
// file. Status and results are filled in by the caller once the run
// has finished.
func NewInvocation(toolName string, fileName string, fileData []byte) (*Invocation, error) {
	newTime := time.Now()
	newULID, err := CalculateUUID(newTime)
	if err != nil {
		Logger.Error("Cannot generate ULID", "fileName", fileName, "error", err)
		return nil, err
	}

	return &Invocation{
		ToolName:  toolName,
		FileName:  fileName,
		FileHash:  calculateHash(fileData),
		FileSize:  int64(len(fileData)),
		ULID:      newULID,
		InvokedAt: newTime,
	}, nil
}

// RecordInvocation saves a finished invocation and bumps the usage
// counters for its tool. A usage counter failure is logged but does
// not fail the invocation itself.
func RecordInvocation(inv *Invocation, db Repository) error {
	err := db.SaveInvocation(inv)
	if err != nil {
		Logger.Error("Unable to write invocation to database", "tool", inv.ToolName, "error", err)
		return err
	}
	succeeded := inv.Status == InvocationStatusCompleted
	if err := db.RecordToolUsage(inv.ToolName, succeeded, inv.DurationMS); err != nil {
		Logger.Error("Unable to update tool usage counters", "tool", inv.ToolName, "error", err)
	}
	return nil
}

// FindPreviousRun looks for an earlier invocation of the same file by
// hash. Running a tool twice on the same file is perfectly fine, this
// just lets us mention it in the logs.
func FindPreviousRun(fileHash string, db Repository) *Invocation {
	invocation, err := db.GetInvocationByHash(fileHash)
	if err != nil || invocation == nil {
		return nil
	}
	Logger.Info("File seen before", "fileName", invocation.FileName, "previousTool", invocation.ToolName, "previousRun", invocation.ULID.String())
	return invocation
}

// FetchNewestInvocations fetches the invocations that were recorded last
func FetchNewestInvocations(numberOf int, db Repository) ([]Invocation, error) {
	newestInvocations, err := db.GetNewestInvocations(numberOf)
	if err != nil {
		Logger.Error("Unable to find the latest invocations", "error", err)
		return newestInvocations, err
	}
	return newestInvocations, nil
}

// FetchInvocation fetches the requested invocation by ULID
func FetchInvocation(invULIDSt string, db Repository) (Invocation, int, error) {
	foundInvocation, err := db.GetInvocationByULID(invULIDSt)
	if err != nil {
		if err == sql.ErrNoRows {
			Logger.Error("Unable to find the requested invocation", "ulid", invULIDSt, "error", err)
			return Invocation{}, http.StatusNotFound, err
		}
		Logger.Error("Database error fetching invocation", "error", err)
		return Invocation{}, http.StatusInternalServerError, err
	}
	return *foundInvocation, http.StatusOK, nil
}

// FetchToolHistory grabs all of the recorded runs of one tool
func FetchToolHistory(toolName string, db Repository) ([]Invocation, error) {
	toolHistory, err := db.GetInvocationsByTool(toolName)
	if err != nil {
		Logger.Error("Unable to find runs for the requested tool", "tool", toolName, "error", err)
		return toolHistory, err
	}
	return toolHistory, nil
}

// DeleteInvocation deletes the requested invocation by ULID
func DeleteInvocation(invULIDSt string, db Repository) error {
	err := db.DeleteInvocation(invULIDSt)
	if err != nil {
		Logger.Error("Unable to delete requested invocation", "error", err)
		return err
	}
	return nil
}

// calculate the hash of the uploaded file contents
func calculateHash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// CalculateUUID for the incoming file
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
