package config

import "time"

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(hmacSecret, jwksURL, noAuthUser string) *Auth {
	return &Auth{
		hmacSecret: hmacSecret,
		jwksURL:    jwksURL,
		noAuthUser: noAuthUser,
	}
}

// NewRateLimitForTest creates a RateLimit config for testing purposes
func NewRateLimitForTest(limit int, window time.Duration) *RateLimit {
	return &RateLimit{limit: limit, window: window}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}

// NewPipelineForTest creates a Pipeline config for testing purposes
func NewPipelineForTest(path string) *Pipeline {
	return &Pipeline{path: path}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format string) *Logger {
	return &Logger{level: level, format: format}
}
