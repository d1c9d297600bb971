package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with the variables Load reads
// cleared, so a developer's environment cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"VOZ_DB_PATH", "VOZ_SERVER_ADDR", "VOZ_LOG_LEVEL", "VOZ_LOG_FILE", "VOZ_REPORT_DIR",
		"OPENAI_BASE_URL", "OPENAI_API_KEY", "VOZ_EMBEDDING_MODEL", "VOZ_CHAT_MODEL",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_API_VERSION",
		"AZURE_OPENAI_CHAT_DEPLOYMENT", "AZURE_OPENAI_EMBEDDING_DEPLOYMENT",
	} {
		// Setenv registers the restore; unset so godotenv treats the key as absent.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 0.6, cfg.Analysis.SimilarityThreshold)
	assert.Equal(t, 10, cfg.Analysis.MaxExamples)
	assert.Equal(t, 2, cfg.Analysis.MinEvidence)
	assert.Equal(t, 10000, cfg.Analysis.EvolutionLimit)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, `
[database]
path = "/data/voz.db"

[ai]
embedding_host = "http://gpu:8080"
chat_model = "llama3"

[server]
addr = "127.0.0.1:9000"

[analysis]
similarity_threshold = 0.5
max_examples = 5

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/voz.db", cfg.Database.Path)
	assert.Equal(t, "http://gpu:8080", cfg.AI.EmbeddingHost)
	assert.Equal(t, "llama3", cfg.AI.ChatModel)
	assert.Equal(t, "embeddinggemma", cfg.AI.EmbeddingModel, "unset keys keep defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 0.5, cfg.Analysis.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Analysis.MaxExamples)
	assert.Equal(t, 2, cfg.Analysis.MinEvidence)
	assert.Equal(t, "debug", cfg.Log.Level)

	aiCfg, err := cfg.AIConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu:8080/v1", aiCfg.EmbeddingHost)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "vozpublica.toml")
	writeFile(t, path, "[database]\npath = \"from-file.db\"\n")

	t.Setenv("VOZ_DB_PATH", "from-env.db")
	t.Setenv("OPENAI_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VOZ_EMBEDDING_MODEL", "text-embedding-3-small")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.EmbeddingHost)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.ChatHost)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "VOZ_SERVER_ADDR=:7000\nVOZ_CHAT_MODEL=gpt-4.1\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "gpt-4.1", cfg.AI.ChatModel)
}

func TestLoad_ExplicitEnvFile(t *testing.T) {
	dir := isolate(t)
	envPath := filepath.Join(dir, "prod.env")
	writeFile(t, envPath, "VOZ_LOG_LEVEL=warn\n")

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Azure(t *testing.T) {
	isolate(t)
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://my-resource.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_API_KEY", "azure-key")
	t.Setenv("AZURE_OPENAI_CHAT_DEPLOYMENT", "gpt-4.1")
	t.Setenv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", "text-embedding-3-small")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "azure", cfg.AI.APIType)

	aiCfg, err := cfg.AIConfig()
	require.NoError(t, err)
	assert.True(t, aiCfg.IsAzure())
	assert.Equal(t, "https://my-resource.openai.azure.com", aiCfg.ChatHost)
	assert.Equal(t, ai.DefaultAzureAPIVersion, aiCfg.APIVersion)
	assert.Equal(t, "azure-key", aiCfg.APIKey)
	assert.Equal(t, "gpt-4.1", aiCfg.ChatModel)
	assert.Equal(t, "text-embedding-3-small", aiCfg.EmbeddingModel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		toml    string
		wantErr string
	}{
		{"malformed toml", "[database\n", "failed to parse TOML"},
		{"bad log level", "[log]\nlevel = \"loud\"\n", "invalid log level"},
		{"empty db path", "[database]\npath = \"\"\n", "database.path"},
		{"bad threshold", "[analysis]\nsimilarity_threshold = 1.5\n", "SimilarityThreshold"},
		{"bad temperature", "[ai]\ntemperature = 3.0\n", "Temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "bad.toml")
			writeFile(t, path, tt.toml)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InMemoryAllowsEmptyPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "mem.toml")
	writeFile(t, path, "[database]\npath = \"\"\nin_memory = true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Database.InMemory)
}

func TestSettings(t *testing.T) {
	cfg := Default()
	cfg.Analysis.SpeakerTopK = 50
	s := cfg.Settings()
	assert.Equal(t, 50, s.SpeakerTopK)
	assert.NoError(t, s.Validate())
}
