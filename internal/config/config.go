package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable of the pipeline. Defaults come from Default,
// environment variables are layered on top by FromEnv and command-line flags
// are bound over the result in cmd/.
type Config struct {
	// Acquisition writes to OriginalsDir while extraction reads from
	// CropInputDir. The defaults differ only in case ("Original" vs
	// "original"); on case-sensitive filesystems they are distinct trees.
	OriginalsDir string
	CropInputDir string
	CroppedDir   string

	// Crawler
	SearchURL      string
	CrawlThreads   int
	RequestTimeout time.Duration
	UserAgent      string
	MinImageBytes  int    // responses smaller than this are skipped; 0 disables
	MaxImageBytes  int    // responses reaching this size are treated as truncated and skipped
	Storage        string // "" or "disk" for local files, "s3://bucket/prefix" for S3
	S3Region       string
	S3Endpoint     string

	// Detector
	Detector     string // opencv, pigo or dlib
	ScaleFactor  float64
	MinNeighbors int
	CascadePath  string
	PigoCascade  string
	DlibModels   string
	DlibCNN      bool

	// Classifier
	ModelPath      string
	ClassIndexPath string
	Backend        string // "" picks by model extension, otherwise python or opencv
	InputSize      int
	Layout         string // nhwc or nchw
	PixelScale     float64
	PythonBin      string
	WorkerScript   string
	WorkerTimeout  time.Duration
	PreviewWidth   uint

	// Web
	BindAddress string
	TLSDomains  string
	DebugMode   bool
}

const (
	DefaultScaleFactor  = 1.3
	DefaultMinNeighbors = 4
	DefaultInputSize    = 112
	DefaultPreviewWidth = 200
)

// Default returns the stock pipeline settings.
func Default() Config {
	return Config{
		OriginalsDir: "Original",
		CropInputDir: "original",
		CroppedDir:   "cropped",

		SearchURL:      "https://www.google.com/search",
		CrawlThreads:   1,
		RequestTimeout: 15 * time.Second,
		MaxImageBytes:  32 << 20,
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",

		Detector:     "opencv",
		ScaleFactor:  DefaultScaleFactor,
		MinNeighbors: DefaultMinNeighbors,

		ModelPath:      "mobilefacenet_trained.h5",
		ClassIndexPath: "class_indices.json",
		InputSize:      DefaultInputSize,
		Layout:         "nhwc",
		PixelScale:     1.0 / 255.0,
		PythonBin:      "python3",
		WorkerScript:   "python/predict_worker.py",
		WorkerTimeout:  60 * time.Second,
		PreviewWidth:   DefaultPreviewWidth,

		BindAddress: "0.0.0.0:8080",
	}
}

// FromEnv returns Default with FACEKIT_* environment overrides applied.
func FromEnv() Config {
	c := Default()
	readEnvString("FACEKIT_ORIGINALS_DIR", &c.OriginalsDir)
	readEnvString("FACEKIT_CROP_INPUT_DIR", &c.CropInputDir)
	readEnvString("FACEKIT_CROPPED_DIR", &c.CroppedDir)

	readEnvString("FACEKIT_SEARCH_URL", &c.SearchURL)
	readEnvInt("FACEKIT_CRAWL_THREADS", &c.CrawlThreads)
	readEnvDuration("FACEKIT_REQUEST_TIMEOUT", &c.RequestTimeout)
	readEnvString("FACEKIT_USER_AGENT", &c.UserAgent)
	readEnvInt("FACEKIT_MIN_IMAGE_BYTES", &c.MinImageBytes)
	readEnvInt("FACEKIT_MAX_IMAGE_BYTES", &c.MaxImageBytes)
	readEnvString("FACEKIT_STORAGE", &c.Storage)
	readEnvString("AWS_REGION", &c.S3Region)
	readEnvString("FACEKIT_S3_ENDPOINT", &c.S3Endpoint)

	readEnvString("FACEKIT_DETECTOR", &c.Detector)
	readEnvFloat("FACEKIT_SCALE_FACTOR", &c.ScaleFactor)
	readEnvInt("FACEKIT_MIN_NEIGHBORS", &c.MinNeighbors)
	readEnvString("FACEKIT_CASCADE", &c.CascadePath)
	readEnvString("FACEKIT_PIGO_CASCADE", &c.PigoCascade)
	readEnvString("FACEKIT_DLIB_MODELS", &c.DlibModels)
	readEnvBool("FACE_DETECT_CNN", &c.DlibCNN)

	readEnvString("FACEKIT_MODEL", &c.ModelPath)
	readEnvString("FACEKIT_CLASS_INDEX", &c.ClassIndexPath)
	readEnvString("FACEKIT_BACKEND", &c.Backend)
	readEnvInt("FACEKIT_INPUT_SIZE", &c.InputSize)
	readEnvString("FACEKIT_LAYOUT", &c.Layout)
	readEnvString("FACEKIT_PYTHON", &c.PythonBin)
	readEnvString("FACEKIT_WORKER_SCRIPT", &c.WorkerScript)
	readEnvDuration("FACEKIT_WORKER_TIMEOUT", &c.WorkerTimeout)

	readEnvString("BIND_ADDRESS", &c.BindAddress)
	readEnvString("TLS_DOMAINS", &c.TLSDomains)
	readEnvBool("DEBUG_MODE", &c.DebugMode)
	return c
}

// Domains splits TLSDomains into a list, dropping blanks.
func (c Config) Domains() []string {
	var out []string
	for _, d := range strings.Split(c.TLSDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvFloat(name string, value *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*value = f
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = i
}

func readEnvDuration(name string, value *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return
	}
	*value = d
}
