package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/pipeline"
	"github.com/airbusgeo/eo-pipeline/service"
)

// fileConfig is the yaml configuration file
type fileConfig struct {
	EarthSearch struct {
		URL           string   `yaml:"url"`
		Collection    string   `yaml:"collection"`
		MaxCloudCover *float64 `yaml:"max_cloud_cover"`
	} `yaml:"earth_search"`
	Pipeline struct {
		TimeSteps     common.TimeRange `yaml:"time_steps"`
		AOI           []float64        `yaml:"aoi"`
		SpectralBands []string         `yaml:"spectral_bands"`
		MaxAttempts   int              `yaml:"max_attempts"`
		Concurrency   int              `yaml:"concurrency"`
	} `yaml:"pipeline"`
	Storage struct {
		Type        string `yaml:"type"`
		Path        string `yaml:"path"`
		CatalogPath string `yaml:"catalog_path"`
	} `yaml:"storage"`
}

type config struct {
	ConfigFile  string
	AOIGeometry string
	Serve       string
	LogLevel    string
	Development bool

	Query    common.Query
	Pipeline pipeline.Config
}

// floatList is a flag.Value of comma-separated floats
type floatList []float64

func (f *floatList) String() string {
	s := make([]string, len(*f))
	for i, v := range *f {
		s[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(s, ",")
}

func (f *floatList) Set(v string) error {
	*f = nil
	for _, s := range strings.Split(v, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*f = append(*f, x)
	}
	return nil
}

// stringList is a flag.Value of comma-separated strings
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = nil
	for _, x := range strings.Split(v, ",") {
		if x = strings.TrimSpace(x); x != "" {
			*s = append(*s, x)
		}
	}
	return nil
}

func newAppConfig(fs *flag.FlagSet, args []string) (*config, error) {
	config := config{Pipeline: pipeline.DefaultConfig()}
	pc := &config.Pipeline

	fs.StringVar(&config.ConfigFile, "config", "", "yaml configuration file (optional). Flags override its values.")
	fs.StringVar(&config.Serve, "serve", "", "address to serve the pipeline API (e.g. ':8080') instead of running a single query")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.BoolVar(&config.Development, "dev", false, "human readable logs")

	// Query
	fs.StringVar(&config.Query.TimeRange.Start, "start", "", "first acquisition date (YYYY-MM-DD)")
	fs.StringVar(&config.Query.TimeRange.End, "end", "", "last acquisition date (YYYY-MM-DD)")
	fs.Var((*floatList)(&config.Query.AOI), "aoi", "area of interest: lon_min,lat_min,lon_max,lat_max")
	fs.StringVar(&config.AOIGeometry, "aoi-geometry", "", "geojson file of a geometry whose bounding box is the area of interest (replaces -aoi)")
	fs.Var((*stringList)(&config.Query.Bands), "bands", "comma-separated list of spectral bands (e.g. red,nir)")

	// Catalog
	fs.StringVar(&pc.CatalogURL, "catalog-url", pc.CatalogURL, "root url of the STAC API")
	fs.StringVar(&pc.Collection, "collection", pc.Collection, "STAC collection")
	fs.Float64Var(&pc.MaxCloudCover, "max-cloud-cover", pc.MaxCloudCover, "maximum cloud cover (%, exclusive)")
	fs.Float64Var(&pc.CatalogRPS, "catalog-rps", 0, "maximum number of search requests per second (0: unlimited)")
	fs.BoolVar(&pc.CatalogIntersects, "catalog-intersects", false, "search with an intersects polygon instead of a bbox")
	fs.StringVar(&pc.CatalogAuth.Token, "catalog-token", "", "bearer token of the STAC API (optional)")
	fs.StringVar(&pc.CatalogAuth.TokenURL, "catalog-token-url", "", "oauth2 token endpoint of the STAC API (optional, client-credentials flow)")
	fs.StringVar(&pc.CatalogAuth.ClientID, "catalog-client-id", "", "oauth2 client id")
	fs.StringVar(&pc.CatalogAuth.ClientSecret, "catalog-client-secret", "", "oauth2 client secret")

	// Storage
	fs.StringVar(&pc.StorageRoot, "storage", pc.StorageRoot, "directory of the downloaded assets")
	fs.StringVar(&pc.CatalogRoot, "catalog-path", pc.CatalogRoot, "directory of the metadata catalog")

	// Downloads
	fs.IntVar(&pc.MaxAttempts, "max-attempts", pc.MaxAttempts, "maximum number of attempts per asset")
	fs.IntVar(&pc.Concurrency, "concurrency", pc.Concurrency, "number of parallel downloads")
	fs.DurationVar(&pc.TaskTimeout, "task-timeout", pc.TaskTimeout, "timeout of a download attempt")
	fs.BoolVar(&pc.SkipExisting, "skip-existing", false, "do not download the assets that already exist")
	fs.StringVar(&pc.Providers.HTTPAuth.Token, "http-token", "", "bearer token to download http assets (optional)")
	fs.StringVar(&pc.Providers.HTTPAuth.Username, "http-username", "", "username to download http assets (optional)")
	fs.StringVar(&pc.Providers.HTTPAuth.Password, "http-password", "", "password to download http assets (optional)")
	fs.StringVar(&pc.Providers.S3Region, "s3-region", "", "region of the s3 buckets (default: us-west-2)")
	fs.StringVar(&pc.Providers.S3Endpoint, "s3-endpoint", "", "endpoint of a s3-compatible storage (optional)")
	fs.BoolVar(&pc.Providers.S3Anonymous, "s3-anonymous", false, "access public s3 buckets without credentials")
	fs.BoolVar(&pc.Providers.S3Requester, "s3-requester-pays", false, "access requester-pays s3 buckets")
	fs.StringVar(&pc.Providers.S3AccessKeyID, "s3-access-key", "", "s3 access key id (optional, default: aws credential chain)")
	fs.StringVar(&pc.Providers.S3SecretAccessKey, "s3-secret-key", "", "s3 secret access key")
	fs.BoolVar(&pc.Providers.GSAnonymous, "gs-anonymous", false, "access public gs buckets without credentials")
	fs.StringVar(&pc.Providers.FTPUser, "ftp-username", "", "ftp account username (optional)")
	fs.StringVar(&pc.Providers.FTPPassword, "ftp-password", "", "ftp account password (optional)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if config.ConfigFile != "" {
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if err := config.loadFile(config.ConfigFile, set); err != nil {
			return nil, err
		}
	}

	if config.AOIGeometry != "" {
		b, err := os.ReadFile(config.AOIGeometry)
		if err != nil {
			return nil, fmt.Errorf("aoi-geometry: %w", err)
		}
		if config.Query.AOI, err = service.GeometryBBox(b); err != nil {
			return nil, fmt.Errorf("aoi-geometry: %w", err)
		}
	}

	if config.Pipeline.CatalogURL == "" {
		return nil, fmt.Errorf("missing catalog-url config flag")
	}
	if config.Pipeline.StorageRoot == "" {
		return nil, fmt.Errorf("missing storage config flag")
	}
	if config.Pipeline.CatalogRoot == "" {
		return nil, fmt.Errorf("missing catalog-path config flag")
	}
	if config.Pipeline.TaskTimeout <= 0 {
		config.Pipeline.TaskTimeout = pipeline.DefaultConfig().TaskTimeout
	}
	return &config, nil
}

// loadFile reads the yaml file. Values of the flags that are set take precedence.
func (c *config) loadFile(filename string, set map[string]bool) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("loadFile: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("loadFile(%s): %w", filename, err)
	}
	if fc.Storage.Type != "" && fc.Storage.Type != "local" {
		return fmt.Errorf("loadFile(%s): unsupported storage type: %s", filename, fc.Storage.Type)
	}

	setString := func(name string, dst *string, v string) {
		if !set[name] && v != "" {
			*dst = v
		}
	}
	setString("catalog-url", &c.Pipeline.CatalogURL, fc.EarthSearch.URL)
	setString("collection", &c.Pipeline.Collection, fc.EarthSearch.Collection)
	setString("start", &c.Query.TimeRange.Start, fc.Pipeline.TimeSteps.Start)
	setString("end", &c.Query.TimeRange.End, fc.Pipeline.TimeSteps.End)
	setString("storage", &c.Pipeline.StorageRoot, fc.Storage.Path)
	setString("catalog-path", &c.Pipeline.CatalogRoot, fc.Storage.CatalogPath)
	if !set["max-cloud-cover"] && fc.EarthSearch.MaxCloudCover != nil {
		c.Pipeline.MaxCloudCover = *fc.EarthSearch.MaxCloudCover
	}
	if !set["aoi"] && fc.Pipeline.AOI != nil {
		c.Query.AOI = fc.Pipeline.AOI
	}
	if !set["bands"] && fc.Pipeline.SpectralBands != nil {
		c.Query.Bands = fc.Pipeline.SpectralBands
	}
	if !set["max-attempts"] && fc.Pipeline.MaxAttempts > 0 {
		c.Pipeline.MaxAttempts = fc.Pipeline.MaxAttempts
	}
	if !set["concurrency"] && fc.Pipeline.Concurrency > 0 {
		c.Pipeline.Concurrency = fc.Pipeline.Concurrency
	}
	return nil
}
