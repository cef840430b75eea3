package internal

import "testing"

func TestConfigValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		if err := testConfig().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("zero workers means derive", func(t *testing.T) {
		cfg := testConfig()
		cfg.Workers = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"workers above max", func(c *Config) { c.Workers = MaxWorkers + 1 }},
		{"workers negative", func(c *Config) { c.Workers = -1 }},
		{"batch size below min", func(c *Config) { c.BatchSize = MinBatchSize - 1 }},
		{"batch size above max", func(c *Config) { c.BatchSize = MaxBatchSize + 1 }},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }},
		{"margin below one", func(c *Config) { c.DiskSpaceMargin = 0.9 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	cfg := testConfig()
	testCases := []struct {
		ext  string
		want FileCategory
	}{
		{".jpg", CategoryImage},
		{".heic", CategoryImage},
		{".nef", CategoryImage},
		{".mov", CategoryVideo},
		{".mp4", CategoryVideo},
		{".aae", CategoryMetadata},
		{".txt", CategoryOther},
		{".xmp", CategoryOther},
	}
	for _, tc := range testCases {
		if got := cfg.Categorize(tc.ext); got != tc.want {
			t.Errorf("Categorize(%q) = %v, want %v", tc.ext, got, tc.want)
		}
	}
}

func TestIsProcessable(t *testing.T) {
	cfg := testConfig()
	for ext, want := range map[string]bool{
		".jpg": true,
		".mov": true,
		".aae": false, // sidecars ride along, they are not pipeline input
		".txt": false,
	} {
		if got := cfg.IsProcessable(ext); got != want {
			t.Errorf("IsProcessable(%q) = %v, want %v", ext, got, want)
		}
	}
}
