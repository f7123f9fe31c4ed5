package main

import (
	"flag"
	"fmt"
	"os"

	application "github.com/freitasmatheusrn/catalog-reconciler/application"
	configs "github.com/freitasmatheusrn/catalog-reconciler/configs"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/database/postgres"
	redisdb "github.com/freitasmatheusrn/catalog-reconciler/internal/database/redis"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a service token for the given name and exit")
	tokenExp := flag.Int("token-exp", 0, "token lifetime in seconds (0 = no expiry)")
	flag.Parse()

	config, err := configs.LoadConfig(".")
	if err != nil {
		panic(err)
	}

	if *issueToken != "" {
		token, err := auth.GenerateJWT(auth.NewClaims(*issueToken, *tokenExp), config.JWTSecret)
		if err != nil {
			panic("error signing token: " + err.Error())
		}
		fmt.Println(token)
		return
	}

	logger := newLogger(config.LogPath)
	defer logger.Sync()

	// Use DATABASE_URL if available (Dokku), otherwise build from individual params
	var dsn string
	if config.DatabaseURL != "" {
		dsn = config.DatabaseURL
	} else {
		dsn = fmt.Sprintf(
			"%s://%s:%s@%s:%s/%s", config.DBDriver, config.DBUser, config.DBPassword, config.DBHost, config.DBPort, config.DBName)
	}

	db, err := postgres.Init(dsn)
	if err != nil {
		logger.Fatal("error starting db", zap.Error(err))
	}
	defer db.Close()

	// Use REDIS_URL if available (Dokku), otherwise build from individual params
	var redisClient *redisdb.Client
	if config.RedisURL != "" {
		redisClient, err = redisdb.NewClientFromURL(config.RedisURL)
	} else {
		redisClient, err = redisdb.NewClient(redisdb.Config{
			Host:     config.RedisHost,
			Port:     config.RedisPort,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
	}
	if err != nil {
		logger.Fatal("error starting redis", zap.Error(err))
	}
	defer redisClient.Close()

	app := application.Application{
		Config: *config,
		Logger: logger,
		DB:     db,
		Redis:  redisClient,
	}

	handler, err := app.Mount()
	if err != nil {
		logger.Error("failed to mount application", zap.Error(err))
		os.Exit(1)
	}
	if err := app.Run(handler); err != nil {
		logger.Error("server failed to start", zap.Error(err))
		os.Exit(1)
	}
}

// newLogger writes Info+ to stdout and, when logPath is set, Warn+ to the file.
func newLogger(logPath string) *zap.Logger {
	// Configure encoder
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// Console core: all levels (Info+) to stdout
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zap.InfoLevel,
	)

	if logPath == "" {
		return zap.New(consoleCore)
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic("failed to open log file: " + err.Error())
	}

	// File encoder without colors
	fileEncoderConfig := encoderConfig
	fileEncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	// File core: only Warn and Error levels
	fileCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(fileEncoderConfig),
		zapcore.AddSync(logFile),
		zap.WarnLevel,
	)

	return zap.New(zapcore.NewTee(consoleCore, fileCore))
}
