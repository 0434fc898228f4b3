package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Search() SearchRepository

	// Close releases the backend connection
	Close() error
}
