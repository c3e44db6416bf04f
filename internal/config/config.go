package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string // empty disables the HTTP API
	GRPCAddr string // empty disables gRPC health

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/rollcall.db"

	LogLevel  string // "debug" | "info" | "warn" | "error"
	LogFormat string // "text" | "json"

	// Remote mirror; empty MongoURI disables it.
	MongoURI     string
	MongoDB      string
	MongoTimeout time.Duration

	// Feedback; empty NATSURL logs signals only.
	NATSURL         string
	FeedbackSubject string

	// Verification
	MatchThreshold    float64
	VerifyWindow      time.Duration
	CaptureRetry      time.Duration
	ReverifyConfirmed bool

	// Enrollment
	EnrollSamples       int
	EnrollMinSamples    int
	EnrollSampleTimeout time.Duration

	// Hardware
	ReaderModules []string // accepted network reader ids; empty accepts any
	SimScript     string   // YAML hardware script; empty uses network readers

	// Export (0 interval = disabled)
	ExportIntervalMinutes int
	ExportS3Bucket        string
	ExportS3Key           string
	ExportS3Region        string
	ExportS3Endpoint      string
}

// LoadDotEnv overlays variables from path onto the environment.  Variables
// already set win.  A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("ROLLCALL_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	logLevel := strings.ToLower(getenvDefault("ROLLCALL_LOG_LEVEL", "info"))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		logLevel = "info"
	}
	logFormat := strings.ToLower(getenvDefault("ROLLCALL_LOG_FORMAT", "text"))
	if logFormat != "json" {
		logFormat = "text"
	}

	threshold := getenvFloat("ROLLCALL_MATCH_THRESHOLD", 0.6)
	if threshold <= 0 {
		threshold = 0.6
	}

	return Config{
		HTTPAddr: getenvAddr("ROLLCALL_HTTP_ADDR", ":8080"),
		GRPCAddr: getenvAddr("ROLLCALL_GRPC_ADDR", ":9090"),

		Env:    env,
		DBPath: getenvDefault("ROLLCALL_DB_PATH", "./data/rollcall.db"),

		LogLevel:  logLevel,
		LogFormat: logFormat,

		MongoURI:     strings.TrimSpace(os.Getenv("ROLLCALL_MONGO_URI")),
		MongoDB:      getenvDefault("ROLLCALL_MONGO_DB", "rollcall"),
		MongoTimeout: time.Duration(getenvInt("ROLLCALL_MONGO_TIMEOUT_MS", 5000)) * time.Millisecond,

		NATSURL:         strings.TrimSpace(os.Getenv("ROLLCALL_NATS_URL")),
		FeedbackSubject: getenvDefault("ROLLCALL_FEEDBACK_SUBJECT", "rollcall.feedback"),

		MatchThreshold:    threshold,
		VerifyWindow:      time.Duration(getenvInt("ROLLCALL_VERIFY_WINDOW_SECONDS", 30)) * time.Second,
		CaptureRetry:      time.Duration(getenvInt("ROLLCALL_CAPTURE_RETRY_MS", 100)) * time.Millisecond,
		ReverifyConfirmed: getenvBool("ROLLCALL_REVERIFY_CONFIRMED"),

		EnrollSamples:       getenvInt("ROLLCALL_ENROLL_SAMPLES", 3),
		EnrollMinSamples:    getenvInt("ROLLCALL_ENROLL_MIN_SAMPLES", 2),
		EnrollSampleTimeout: time.Duration(getenvInt("ROLLCALL_ENROLL_SAMPLE_TIMEOUT_SECONDS", 30)) * time.Second,

		ReaderModules: splitCSV(os.Getenv("ROLLCALL_READER_MODULES")),
		SimScript:     strings.TrimSpace(os.Getenv("ROLLCALL_SIM_SCRIPT")),

		ExportIntervalMinutes: getenvInt("ROLLCALL_EXPORT_INTERVAL_MINUTES", 0),
		ExportS3Bucket:        strings.TrimSpace(os.Getenv("ROLLCALL_EXPORT_S3_BUCKET")),
		ExportS3Key:           getenvDefault("ROLLCALL_EXPORT_S3_KEY", "rollcall/attendance.jsonl"),
		ExportS3Region:        getenvDefault("ROLLCALL_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Endpoint:      strings.TrimSpace(os.Getenv("ROLLCALL_EXPORT_S3_ENDPOINT")),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// getenvAddr is getenvDefault, except a variable set to empty disables the
// listener.
func getenvAddr(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
