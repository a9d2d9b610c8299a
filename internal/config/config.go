package config

import "github.com/caarlos0/env/v11"

// Config holds everything the server reads from the environment.
type Config struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	DBPath    string `env:"DB_PATH" envDefault:"blyza.db"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	StripePremiumPrice  string `env:"STRIPE_PREMIUM_PRICE"`
	CheckoutSuccessURL  string `env:"CHECKOUT_SUCCESS_URL" envDefault:"https://www.blyza.com/premium/success"`
	CheckoutCancelURL   string `env:"CHECKOUT_CANCEL_URL" envDefault:"https://www.blyza.com/premium"`

	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"VAPID_SUBJECT" envDefault:"mailto:support@blyza.com"`

	BackupBucket     string `env:"BACKUP_S3_BUCKET"`
	BackupEndpoint   string `env:"BACKUP_S3_ENDPOINT"`
	BackupRegion     string `env:"BACKUP_S3_REGION" envDefault:"auto"`
	BackupAccessKey  string `env:"BACKUP_S3_ACCESS_KEY"`
	BackupSecretKey  string `env:"BACKUP_S3_SECRET_KEY"`
	BackupPassphrase string `env:"BACKUP_PASSPHRASE"`
	BackupIntervalHr int    `env:"BACKUP_INTERVAL_HOURS" envDefault:"24"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

// BackupsEnabled reports whether enough of the backup settings are present
// to run the scheduler.
func (c Config) BackupsEnabled() bool {
	return c.BackupBucket != "" && c.BackupAccessKey != "" && c.BackupSecretKey != "" && c.BackupPassphrase != ""
}
