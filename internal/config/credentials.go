package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"
)

// newCredentialEnv 构造读取 API_KEY_n / API_SECRET_n / API_ACCOUNT_n 的 viper 实例。
// 进程环境变量优先于 .env 文件，.env 文件不存在时忽略。
func newCredentialEnv(envFile string) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile == "" {
		return v, nil
	}
	if _, err := os.Stat(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("读取 env 文件 %q 失败: %w", envFile, err)
	}

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("解析 env 文件 %q 失败: %w", envFile, err)
	}
	return v, nil
}

// overlayCredentials 用环境变量覆盖配置文件中的凭证槽位，必要时扩展列表。
func overlayCredentials(base []CredentialConfig, env *viper.Viper) []CredentialConfig {
	out := append([]CredentialConfig(nil), base...)

	for slot := 1; slot <= maxCredentialSlots; slot++ {
		key := env.GetString(fmt.Sprintf("API_KEY_%d", slot))
		secret := env.GetString(fmt.Sprintf("API_SECRET_%d", slot))
		account := env.GetString(fmt.Sprintf("API_ACCOUNT_%d", slot))
		if key == "" && secret == "" && account == "" {
			continue
		}

		for len(out) < slot {
			out = append(out, CredentialConfig{})
		}
		cred := &out[slot-1]
		if key != "" {
			cred.APIKey = key
		}
		if secret != "" {
			cred.APISecret = secret
		}
		if account != "" {
			cred.Account = account
		}
	}

	return out
}
