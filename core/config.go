package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		Env          string
		Build        string
		AppName      string
		SecretKey    string
		RollbarToken string

		Server      ServerConfig
		Storage     StorageConfig
		Remote      RemoteConfig
		Objects     ObjectsConfig
		Access      AccessConfig
		Attachments AttachmentsConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		PollInterval    time.Duration
		DisableReqLogs  bool
	}

	// StorageConfig configures the local persistent store.
	// Driver is one of "bolt" (default), "file", "redis" or "memory".
	StorageConfig struct {
		Driver    string
		Path      string
		Namespace string
		RedisAddr string
	}

	// RemoteConfig gates the remote synchronized store: it is enabled only when both URL and Token are set.
	RemoteConfig struct {
		URL        string
		User       string
		Token      string
		DisableTLS bool
	}

	ObjectsConfig struct {
		KeyID  string
		AppKey string
		Bucket string
	}

	AccessConfig struct {
		StudentKey string
		TeacherKey string
	}

	AttachmentsConfig struct {
		MaxDimension int
		JPEGQuality  int
		MaxUploadMB  int64
	}
)

// RemoteEnabled reports whether the remote endpoint and its access token are both configured.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.URL != "" && c.Remote.Token != ""
}

// ObjectsEnabled reports whether attachment object storage is configured.
func (c *Config) ObjectsEnabled() bool {
	return c.Objects.KeyID != "" && c.Objects.AppKey != "" && c.Objects.Bucket != ""
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Classboard")
	v.SetDefault("secretKey", "x7!kq2-vd$e9z+j4^m0w8&bt1(rl6#ny")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":8001")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.pollInterval", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("storage.driver", "bolt")
	v.SetDefault("storage.path", filepath.Join("data", "classboard.db"))
	v.SetDefault("storage.namespace", "kv8")
	v.SetDefault("storage.redisAddr", "")

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.user", "anon")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.disableTLS", false)

	v.SetDefault("objects.keyID", "")
	v.SetDefault("objects.appKey", "")
	v.SetDefault("objects.bucket", "")

	v.SetDefault("access.studentKey", "LEARNER8")
	v.SetDefault("access.teacherKey", "EDUCATOR8")

	v.SetDefault("attachments.maxDimension", 1600)
	v.SetDefault("attachments.jpegQuality", 80)
	v.SetDefault("attachments.maxUploadMB", int64(20))
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the current ENV (DEV by default), eg. DEV_REMOTE_URL.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			PollInterval:    v.GetDuration("server.pollInterval"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(v.GetString("storage.driver")),
			Path:      v.GetString("storage.path"),
			Namespace: v.GetString("storage.namespace"),
			RedisAddr: v.GetString("storage.redisAddr"),
		},
		Remote: RemoteConfig{
			URL:        v.GetString("remote.url"),
			User:       v.GetString("remote.user"),
			Token:      v.GetString("remote.token"),
			DisableTLS: v.GetBool("remote.disableTLS"),
		},
		Objects: ObjectsConfig{
			KeyID:  v.GetString("objects.keyID"),
			AppKey: v.GetString("objects.appKey"),
			Bucket: v.GetString("objects.bucket"),
		},
		Access: AccessConfig{
			StudentKey: v.GetString("access.studentKey"),
			TeacherKey: v.GetString("access.teacherKey"),
		},
		Attachments: AttachmentsConfig{
			MaxDimension: v.GetInt("attachments.maxDimension"),
			JPEGQuality:  v.GetInt("attachments.jpegQuality"),
			MaxUploadMB:  v.GetInt64("attachments.maxUploadMB"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory storage, no remote and no request logs.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	conf := &Config{
		Debug:     false,
		TestMode:  true,
		Env:       "TEST",
		Build:     "test",
		AppName:   v.GetString("appName"),
		SecretKey: "secret",
		Server: ServerConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			PollInterval:    v.GetDuration("server.pollInterval"),
			DisableReqLogs:  true,
		},
		Storage: StorageConfig{Driver: "memory", Namespace: v.GetString("storage.namespace")},
		Access: AccessConfig{
			StudentKey: v.GetString("access.studentKey"),
			TeacherKey: v.GetString("access.teacherKey"),
		},
		Attachments: AttachmentsConfig{
			MaxDimension: v.GetInt("attachments.maxDimension"),
			JPEGQuality:  v.GetInt("attachments.jpegQuality"),
			MaxUploadMB:  v.GetInt64("attachments.maxUploadMB"),
		},
	}
	return conf
}
