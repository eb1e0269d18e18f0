package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                   string
		DebugHost              string
		ReadTimeout            time.Duration
		WriteTimeout           time.Duration
		ShutdownTimeout        time.Duration
		SessionCookie          string
		SessionExpirationDelta time.Duration
		SecureCookie           bool
		AllowedOrigins         []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SMSConfig struct {
		AligoBaseURL string
		AligoApiKey  string
		AligoUserID  string
		Sender       string
		TestMode     bool
	}

	// RateLimit is a fixed window: at most Max hits per Window.
	RateLimit struct {
		Window time.Duration
		Max    int
	}

	RateLimitConfig struct {
		Login    RateLimit
		Register RateLimit
		Password RateLimit
		SMS      RateLimit
	}

	AttendanceConfig struct {
		TeacherLongAbsenceWeeks int
		AdminLongAbsenceWeeks   int
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		Timezone         string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server     ServerConfig
		Database   DatabaseConfig
		SMS        SMSConfig
		RateLimit  RateLimitConfig
		Attendance AttendanceConfig
	}
)

// Location returns the configured time zone; "today" is evaluated in it.
func (conf *Config) Location() *time.Location {
	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values are read from the environment (prefixed with the ENV name, e.g. DEV_DEBUG)
// after loading `config/.env.<env>` when it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Mokjang")
	v.SetDefault("secretKey", "8q#v!o2m(k4$r0+t7^w=j6e@z1x&b9y-n3c5p*a)l_d-h8s")
	v.SetDefault("timezone", "Asia/Seoul")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "Mokjang")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 10*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("sessionCookie", "session")
	v.SetDefault("sessionExpirationDelta", 7*24*time.Hour)
	v.SetDefault("secureCookie", false)
	v.SetDefault("allowedOrigins", "http://localhost:3000")

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "mokjang")
	v.SetDefault("dbUser", "mokjang")
	v.SetDefault("dbPassword", "mokjang")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("aligoBaseURL", "https://apis.aligo.in")
	v.SetDefault("aligoApiKey", "")
	v.SetDefault("aligoUserID", "")
	v.SetDefault("smsSender", "")
	v.SetDefault("smsTestMode", true)

	v.SetDefault("loginRateWindow", 15*time.Minute)
	v.SetDefault("loginRateMax", 10)
	v.SetDefault("registerRateWindow", time.Hour)
	v.SetDefault("registerRateMax", 5)
	v.SetDefault("passwordRateWindow", 15*time.Minute)
	v.SetDefault("passwordRateMax", 5)
	v.SetDefault("smsRateWindow", time.Minute)
	v.SetDefault("smsRateMax", 30)

	v.SetDefault("teacherLongAbsenceWeeks", 2)
	v.SetDefault("adminLongAbsenceWeeks", 4)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
		v.SetDefault("secureCookie", true)
		v.SetDefault("dbDisableTLS", false)
		v.SetDefault("smsTestMode", false)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         workDir,
		Timezone:        v.GetString("timezone"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                   v.GetString("serverHost"),
			DebugHost:              v.GetString("serverDebugHost"),
			ReadTimeout:            v.GetDuration("serverReadTimeout"),
			WriteTimeout:           v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:        v.GetDuration("serverShutdownTimeout"),
			SessionCookie:          v.GetString("sessionCookie"),
			SessionExpirationDelta: v.GetDuration("sessionExpirationDelta"),
			SecureCookie:           v.GetBool("secureCookie"),
			AllowedOrigins:         strings.Split(v.GetString("allowedOrigins"), ","),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		SMS: SMSConfig{
			AligoBaseURL: v.GetString("aligoBaseURL"),
			AligoApiKey:  v.GetString("aligoApiKey"),
			AligoUserID:  v.GetString("aligoUserID"),
			Sender:       v.GetString("smsSender"),
			TestMode:     v.GetBool("smsTestMode"),
		},
		RateLimit: RateLimitConfig{
			Login:    RateLimit{Window: v.GetDuration("loginRateWindow"), Max: v.GetInt("loginRateMax")},
			Register: RateLimit{Window: v.GetDuration("registerRateWindow"), Max: v.GetInt("registerRateMax")},
			Password: RateLimit{Window: v.GetDuration("passwordRateWindow"), Max: v.GetInt("passwordRateMax")},
			SMS:      RateLimit{Window: v.GetDuration("smsRateWindow"), Max: v.GetInt("smsRateMax")},
		},
		Attendance: AttendanceConfig{
			TeacherLongAbsenceWeeks: v.GetInt("teacherLongAbsenceWeeks"),
			AdminLongAbsenceWeeks:   v.GetInt("adminLongAbsenceWeeks"),
		},
	}
}

func (conf *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Build: %s, Debug: %t, DB: %s/%s}",
		conf.Env, conf.Build, conf.Debug, conf.Database.Address(), conf.Database.Name)
}
