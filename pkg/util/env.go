package util

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv 根据环境加载对应的 .env 文件（.env.development / .env.production）
func LoadEnv(env string) error {
	file := ".env." + env
	if _, err := os.Stat(file); os.IsNotExist(err) {
		file = ".env"
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		// 没有 .env 文件时直接使用进程环境变量
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		log.Printf("failed to load %s: %v", file, err)
		return err
	}
	return nil
}

// GetEnv 获取环境变量字符串值
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvDefault 获取环境变量，缺省时返回默认值
func GetEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetIntEnv 获取整型环境变量，解析失败返回0
func GetIntEnv(key string) int64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// GetBoolEnv 获取布尔环境变量（"true"/"1" 视为真）
func GetBoolEnv(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

// GetDurationEnv 获取时长环境变量，支持 "30s"/"2m" 形式
func GetDurationEnv(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
