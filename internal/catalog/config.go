package catalog

// Config locates the catalog database and the feed dumps it ingests.
type Config struct {
	// DatabasePath is the SQLite file holding ingested domain names.
	DatabasePath string `yaml:"database_path"`

	// FeedDir is scanned for newly-registered-domain dump files: loose
	// *.txt files, or extracted archive directories containing a
	// domain-names.txt.
	FeedDir string `yaml:"feed_dir"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "./monitoring/nrd/catalog.db",
		FeedDir:      "./monitoring/nrd/feeds",
	}
}
