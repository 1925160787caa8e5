// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
)

// clearShortcutEnv 避免开发机上的 OPENAI_* 变量影响断言
func clearShortcutEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const roomYAML = `
server:
  http_port: 9000
room:
  default_policy: broadcast
  max_rounds: 3
llm:
  providers:
    gpt:
      api_key: sk-test
      model: gpt-4o
    azure-east:
      flavor: azure
      api_key: az-key
      base_url: https://east.openai.azure.com
      deployment: gpt35
agents:
  - alias: Bob
    kind: agent.chat
    llm: gpt
    description: a helpful assistant
  - alias: Carol
    kind: agent.zeroshot
    llm: azure-east
    prefix_prompt: "{history}"
store:
  type: file
  base_dir: /tmp/groups
`

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)

	assert.Equal(t, conversation.PolicyTurnTaking, cfg.Room.DefaultPolicy)
	assert.Equal(t, 5, cfg.Room.MaxRounds)

	assert.Equal(t, persistence.StoreTypeMemory, cfg.Store.Type)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 64, cfg.Events.HubBuffer)
	assert.Empty(t, cfg.Events.Kafka.Brokers)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	clearShortcutEnv(t)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Empty(t, cfg.Agents)
	assert.Empty(t, cfg.LLM.Providers)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.LLM.RetryBackoff)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	clearShortcutEnv(t)

	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	clearShortcutEnv(t)
	path := writeFile(t, "agentroom.yaml", roomYAML)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	// 未出现在文件里的字段保留默认值
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, conversation.PolicyBroadcast, cfg.Room.DefaultPolicy)
	assert.Equal(t, 3, cfg.Room.MaxRounds)

	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "Bob", cfg.Agents[0].Alias)
	assert.Equal(t, agent.KindChat, cfg.Agents[0].Kind)
	assert.Equal(t, agent.KindZeroshot, cfg.Agents[1].Kind)

	require.Contains(t, cfg.LLM.Providers, "azure-east")
	pc := cfg.LLM.Providers["azure-east"].OpenAICompat("azure-east", cfg.LLM.Timeout)
	assert.Equal(t, "gpt35", pc.Deployment)
	assert.Equal(t, 60*time.Second, pc.Timeout)

	assert.Equal(t, persistence.StoreTypeFile, cfg.Store.Type)
	assert.Equal(t, "/tmp/groups", cfg.Store.BaseDir)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "server: [unclosed")

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	clearShortcutEnv(t)
	path := writeFile(t, "agentroom.yaml", roomYAML)

	t.Setenv("AGENTROOM_SERVER_HTTP_PORT", "9100")
	t.Setenv("AGENTROOM_ROOM_MAX_ROUNDS", "7")
	t.Setenv("AGENTROOM_ROOM_RESPONDER_TIMEOUT", "15s")
	t.Setenv("AGENTROOM_STORE_TYPE", "redis")
	t.Setenv("AGENTROOM_REDIS_KEY_PREFIX", "test:")
	t.Setenv("AGENTROOM_DATABASE_POOL_MAX_OPEN_CONNS", "20")
	t.Setenv("AGENTROOM_EVENTS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AGENTROOM_AUTH_API_KEYS", "a,b")
	t.Setenv("AGENTROOM_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AGENTROOM_LOG_LEVEL", "debug")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, 7, cfg.Room.MaxRounds)
	assert.Equal(t, 15*time.Second, cfg.Room.ResponderTimeout)
	assert.Equal(t, persistence.StoreTypeRedis, cfg.Store.Type)
	assert.Equal(t, "test:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 20, cfg.Database.Pool.MaxOpenConns)
	assert.Equal(t, "k1:9092,k2:9092", cfg.Events.Kafka.Brokers)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
	assert.True(t, cfg.Auth.JWT.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_UnprefixedEnvIsIgnored(t *testing.T) {
	clearShortcutEnv(t)
	t.Setenv("PORT", "1234")
	t.Setenv("USER", "someone")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Empty(t, cfg.Database.User)
}

func TestLoader_OpenAIShortcut(t *testing.T) {
	clearShortcutEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("AGENTROOM_LLM_OPENAI_MODEL", "gpt-4o-mini")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.Contains(t, cfg.LLM.Providers, "openai")
	assert.Equal(t, "sk-env", cfg.LLM.Providers["openai"].APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Providers["openai"].Model)
}

func TestLoader_EnvFile(t *testing.T) {
	clearShortcutEnv(t)
	// godotenv 不覆盖已存在的变量，先确保测试变量不存在
	t.Setenv("AGENTROOM_SERVER_METRICS_PORT", "")
	os.Unsetenv("AGENTROOM_SERVER_METRICS_PORT")
	t.Cleanup(func() { os.Unsetenv("AGENTROOM_SERVER_METRICS_PORT") })

	env := writeFile(t, ".env", "AGENTROOM_SERVER_METRICS_PORT=9999\n")
	cfg, err := NewLoader().WithEnvFile(env, filepath.Join(t.TempDir(), "missing.env")).Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.MetricsPort)
}

func TestLoader_WithValidator(t *testing.T) {
	clearShortcutEnv(t)

	called := false
	_, err := NewLoader().WithValidator(func(c *Config) error {
		called = true
		return assert.AnError
	}).Load()
	assert.True(t, called)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("AGENTROOM_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	assert.ErrorContains(t, err, "failed to load config from env")
}

func TestMustLoad(t *testing.T) {
	clearShortcutEnv(t)
	path := writeFile(t, "agentroom.yaml", roomYAML)
	assert.NotPanics(t, func() { MustLoad(path) })

	bad := writeFile(t, "bad.yaml", "server:\n  http_port: 0\n")
	assert.Panics(t, func() { MustLoad(bad) })
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.LLM.Providers = map[string]ProviderConfig{"gpt": {APIKey: "k"}}
		cfg.Agents = []agent.Spec{{Alias: "Bob", Kind: agent.KindChat, LLM: "gpt"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 70000 }, "HTTPPort"},
		{"unknown policy", func(c *Config) { c.Room.DefaultPolicy = "debate" }, "DefaultPolicy"},
		{"negative rounds", func(c *Config) { c.Room.MaxRounds = -1 }, "MaxRounds"},
		{"unknown store", func(c *Config) { c.Store.Type = "s3" }, "Type"},
		{"unknown provider", func(c *Config) { c.Agents[0].LLM = "claude" }, "unknown llm provider"},
		{"duplicate alias", func(c *Config) {
			c.Agents = append(c.Agents, agent.Spec{Alias: "bob", Kind: agent.KindChat, LLM: "gpt"})
		}, "duplicate alias"},
		{"reserved alias", func(c *Config) { c.Agents[0].Alias = "Avatar" }, "agents[Avatar]"},
		{"azure without deployment", func(c *Config) {
			c.LLM.Providers["az"] = ProviderConfig{Flavor: "azure", APIKey: "k"}
		}, "Deployment"},
		{"provider without key", func(c *Config) { c.LLM.Providers["gpt"] = ProviderConfig{} }, "APIKey"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.OTLPEndpoint = ""
		}, "OTLPEndpoint"},
		{"tls key without cert", func(c *Config) { c.Server.TLSKeyFile = "key.pem" }, "TLSCertFile"},
		{"idle above open", func(c *Config) {
			c.Database.Pool.MaxIdleConns = c.Database.Pool.MaxOpenConns + 1
		}, "database.pool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// --- 辅助方法测试 ---

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver: "postgres", Host: "localhost", Port: 5432,
				User: "room", Password: "secret", Name: "agentroom", SSLMode: "disable",
			},
			expected: "host=localhost port=5432 user=room password=secret dbname=agentroom sslmode=disable",
		},
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver: "mysql", Host: "localhost", Port: 3306,
				User: "room", Password: "secret", Name: "agentroom",
			},
			expected: "room:secret@tcp(localhost:3306)/agentroom?parseTime=true&charset=utf8mb4",
		},
		{name: "sqlite", config: DatabaseConfig{Driver: "sqlite", Name: "/data/room.db"}, expected: "/data/room.db"},
		{name: "unknown", config: DatabaseConfig{Driver: "oracle"}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestServerConfig_HTTPServer(t *testing.T) {
	sc := DefaultServerConfig()
	sc.HTTPPort = 8181

	hc, err := sc.HTTPServer()
	require.NoError(t, err)
	assert.Equal(t, ":8181", hc.Addr)
	assert.Equal(t, sc.WriteTimeout, hc.WriteTimeout)
	assert.Equal(t, sc.ShutdownTimeout, hc.ShutdownTimeout)
	assert.Nil(t, hc.TLSConfig)

	sc.TLSCertFile = "/nonexistent/cert.pem"
	sc.TLSKeyFile = "/nonexistent/key.pem"
	_, err = sc.HTTPServer()
	assert.Error(t, err)
}
