package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend kinds for RECOGNITION_BACKEND.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Scan modes for SCAN_MODE.
const (
	ScanModeReal       = "real"
	ScanModeFabricated = "fabricated"
)

type Config struct {
	Recognition RecognitionConfig
	Remote      RemoteConfig
	Local       LocalConfig
	Embedding   EmbeddingConfig
	Camera      CameraConfig
	Service     ServiceConfig
	Database    DatabaseConfig
	Alert       AlertConfig
	Web         WebConfig
	Models      ModelsConfig
}

type RecognitionConfig struct {
	Backend         string        // "local" or "remote"
	MatchThreshold  float64       // confidence percentage a labeled match must exceed
	ClearConfidence float64       // confidence reported when no reference set exists
	LocalInterval   time.Duration // polling period for the local backend
	RemoteInterval  time.Duration // polling period for the remote backend
	ScanDelay       time.Duration // feedback delay before a scan verdict is returned
	ScanMode        string        // "real" or "fabricated"
}

// PollInterval returns the polling period for the configured backend.
func (c *RecognitionConfig) PollInterval() time.Duration {
	if c.Backend == BackendRemote {
		return c.RemoteInterval
	}
	return c.LocalInterval
}

type RemoteConfig struct {
	URL     string        // recognition service base URL, defaults to http://localhost:5000
	Timeout time.Duration // per-request timeout
}

type LocalConfig struct {
	DescriptorFile string  // face-descriptors.json produced by the trainer
	Detector       string  // "embedding" (sidecar) or "dlib" (go-face, needs the dlib build tag)
	ModelDir       string  // dlib model directory for the go-face detector
	MaxDistance    float64 // euclidean distance above which a descriptor is "unknown"
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 512
}

type CameraConfig struct {
	Kind        string // "dir", "snapshot" or "device" (needs the gocv build tag)
	Dir         string // image directory for the dir source
	SnapshotURL string // JPEG snapshot endpoint for the snapshot source
	Device      int    // video device index for the device source
	Width       int
	Height      int
	Facing      string
	FPS         float64
}

type ServiceConfig struct {
	EmbeddingsFile string  // face_embeddings.json produced by the trainer
	Threshold      float64 // cosine similarity above which a face matches the trained person
	Model          string  // model name reported by /health
	Detector       string  // detector name reported by /health
	HNSWIndexPath  string  // optional path to persist the reference HNSW graph
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional reference store)
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type AlertConfig struct {
	Broker   string // MQTT broker host:port, empty disables alerts
	Topic    string
	ClientID string
}

type WebConfig struct {
	Host           string
	Port           int
	OperatorToken  string   // bearer token for camera and scan endpoints, empty disables the check
	AllowedOrigins []string // extra CORS origins besides localhost
}

type ModelsConfig struct {
	BaseURL string // face-api.js weights repository
	Dir     string // download target
}

// envList reads a comma-separated environment variable.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float64.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a time.Duration ("2s", "100ms").
// A bare integer is taken as milliseconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return time.Duration(n) * time.Millisecond
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Recognition: RecognitionConfig{
			Backend:         strings.ToLower(envString("RECOGNITION_BACKEND", BackendLocal)),
			MatchThreshold:  envFloat("MATCH_THRESHOLD", 60),
			ClearConfidence: envFloat("CLEAR_CONFIDENCE", 95),
			LocalInterval:   envDuration("LOCAL_POLL_INTERVAL", 100*time.Millisecond),
			RemoteInterval:  envDuration("REMOTE_POLL_INTERVAL", 2000*time.Millisecond),
			ScanDelay:       envDuration("SCAN_DELAY", 0),
			ScanMode:        strings.ToLower(envString("SCAN_MODE", ScanModeReal)),
		},
		Remote: RemoteConfig{
			URL:     os.Getenv("RECOGNIZER_URL"),
			Timeout: envDuration("RECOGNIZER_TIMEOUT", 10*time.Second),
		},
		Local: LocalConfig{
			DescriptorFile: envString("DESCRIPTOR_FILE", "public/trained-faces/face-descriptors.json"),
			Detector:       envString("LOCAL_DETECTOR", "embedding"),
			ModelDir:       envString("DLIB_MODEL_DIR", "public/models"),
			MaxDistance:    envFloat("MATCHER_MAX_DISTANCE", 0.6),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Camera: CameraConfig{
			Kind:        envString("CAMERA_KIND", "dir"),
			Dir:         envString("CAMERA_DIR", "frames"),
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
			Device:      envInt("CAMERA_DEVICE", 0),
			Width:       envInt("CAMERA_WIDTH", 1280),
			Height:      envInt("CAMERA_HEIGHT", 720),
			Facing:      envString("CAMERA_FACING", "user"),
			FPS:         envFloat("CAMERA_FPS", 10),
		},
		Service: ServiceConfig{
			EmbeddingsFile: envString("EMBEDDINGS_FILE", "public/trained-faces/face_embeddings.json"),
			Threshold:      envFloat("SIMILARITY_THRESHOLD", 0.4),
			Model:          envString("SERVICE_MODEL", "Facenet512"),
			Detector:       envString("SERVICE_DETECTOR", "opencv"),
			HNSWIndexPath:  os.Getenv("HNSW_INDEX_PATH"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Alert: AlertConfig{
			Broker:   os.Getenv("ALERT_MQTT_BROKER"),
			Topic:    envString("ALERT_MQTT_TOPIC", "facewatch/alerts"),
			ClientID: os.Getenv("ALERT_MQTT_CLIENT_ID"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			OperatorToken:  os.Getenv("WEB_OPERATOR_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Models: ModelsConfig{
			BaseURL: envString("MODELS_BASE_URL", "https://raw.githubusercontent.com/justadudewhohacks/face-api.js/master/weights"),
			Dir:     envString("MODELS_DIR", "public/models"),
		},
	}
}
