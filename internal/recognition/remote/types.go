package remote

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	Model            string `json:"model"`
	Detector         string `json:"detector"`
	EmbeddingsLoaded bool   `json:"embeddings_loaded"`
	Person           string `json:"person,omitempty"`
}

// RecognizeRequest is the body of POST /recognize. Image is a base64 JPEG,
// optionally with a data URL prefix.
type RecognizeRequest struct {
	Image string `json:"image"`
}

// RecognizeDetails carries diagnostics of a recognition.
type RecognizeDetails struct {
	Model          string `json:"model"`
	NumComparisons int    `json:"num_comparisons"`
}

// RecognizeResponse is returned by POST /recognize.
type RecognizeResponse struct {
	Success       bool              `json:"success"`
	FaceDetected  bool              `json:"face_detected"`
	IsMatch       bool              `json:"is_match"`
	PersonName    string            `json:"person_name,omitempty"`
	Confidence    float64           `json:"confidence"`
	MaxSimilarity float64           `json:"max_similarity"`
	AvgSimilarity float64           `json:"avg_similarity"`
	Threshold     float64           `json:"threshold,omitempty"`
	Details       *RecognizeDetails `json:"details,omitempty"`
	Message       string            `json:"message,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// VerifyRequest is the body of POST /verify.
type VerifyRequest struct {
	Image1 string `json:"image1"`
	Image2 string `json:"image2"`
}

// VerifyResponse is returned by POST /verify.
type VerifyResponse struct {
	Success   bool    `json:"success"`
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
	Error     string  `json:"error,omitempty"`
}

// InfoResponse is returned by GET /info.
type InfoResponse struct {
	Loaded             bool    `json:"loaded"`
	PersonName         string  `json:"person_name,omitempty"`
	NumEmbeddings      int     `json:"num_embeddings,omitempty"`
	EmbeddingDimension int     `json:"embedding_dimension,omitempty"`
	Model              string  `json:"model,omitempty"`
	Detector           string  `json:"detector,omitempty"`
	Threshold          float64 `json:"threshold,omitempty"`
	EmbeddingsFile     string  `json:"embeddings_file,omitempty"`
	Message            string  `json:"message,omitempty"`
}

// ReloadResponse is returned by POST /reload.
type ReloadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the body of failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
