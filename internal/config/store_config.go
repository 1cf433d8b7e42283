package config

type StoreConfig interface {
	GetDatabaseURL() string
	GetAutoMigrate() bool
	GetRedisURL() string
	GetServicesFile() string
	GetLogoDir() string
	GetLogoBucket() string
	GetS3Region() string
	GetS3Endpoint() string
	GetS3AccessKey() string
	GetS3SecretKey() string
}

type Stores struct {
	src values
}

var _ StoreConfig = Stores{}

// GetDatabaseURL returns the PostgreSQL DSN. Empty selects the in-memory store.
func (s Stores) GetDatabaseURL() string {
	return s.src.str("DATABASE_URL", "")
}

func (s Stores) GetAutoMigrate() bool {
	return s.src.boolean("AUTO_MIGRATE", false)
}

// GetRedisURL returns the grant store URL. Empty selects the in-memory grant store.
func (s Stores) GetRedisURL() string {
	return s.src.str("REDIS_URL", "")
}

func (s Stores) GetServicesFile() string {
	return s.src.str("SERVICES_FILE", "./services.yaml")
}

func (s Stores) GetLogoDir() string {
	return s.src.str("LOGO_DIR", "./data/logos")
}

// GetLogoBucket selects S3 logo storage when set
func (s Stores) GetLogoBucket() string {
	return s.src.str("LOGO_BUCKET", "")
}

func (s Stores) GetS3Region() string {
	return s.src.str("S3_REGION", "us-east-1")
}

func (s Stores) GetS3Endpoint() string {
	return s.src.str("S3_ENDPOINT", "")
}

func (s Stores) GetS3AccessKey() string {
	return s.src.str("S3_ACCESS_KEY", "")
}

func (s Stores) GetS3SecretKey() string {
	return s.src.str("S3_SECRET_KEY", "")
}
