package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

// setEnv sets or clears key for the current test and restores it afterwards.
func setEnv(key, value string) {
	old, had := os.LookupEnv(key)
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

var _ = Describe("Parse", func() {
	var (
		args []string
		cfg  *Config
		err  error
	)

	BeforeEach(func() {
		for _, key := range []string{
			"GEMINI_API_KEY", "OPENAI_API_KEY",
			"AUTOCOMPANION_GEMINI_KEY", "AUTOCOMPANION_PORT", "AUTOCOMPANION_GENERATOR",
			"AUTOCOMPANION_STORE", "AUTOCOMPANION_OCR_ENGINE", "AUTOCOMPANION_CORS_ORIGINS",
		} {
			setEnv(key, "")
		}
		args = []string{"--gemini-key", "g-key"}
	})

	JustBeforeEach(func() {
		cfg, err = Parse(args)
	})

	When("only the required key is given", func() {
		It("should apply the defaults", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Port).To(Equal(8080))
			Expect(cfg.CORSOrigins).To(Equal([]string{"*"}))
			Expect(cfg.Store).To(Equal("bolt"))
			Expect(cfg.DBPath).To(Equal("autocompanion.db"))
			Expect(cfg.Generator).To(Equal("gemini"))
			Expect(cfg.GeminiModel).To(Equal("gemini-1.5-flash"))
			Expect(cfg.GenerateTimeout).To(Equal(40 * time.Second))
			Expect(cfg.OCREngine).To(Equal("tesseract"))
			Expect(cfg.OCRLanguage).To(Equal("eng"))
			Expect(cfg.OCRPageSeg).To(Equal(11))
			Expect(cfg.OCRDPI).To(Equal(300))
			Expect(cfg.OCRScale).To(Equal(2.5))
			Expect(cfg.OCRMedian).To(Equal(3))
			Expect(cfg.OCRMaxPixels).To(Equal(16_000_000))
			Expect(cfg.FetchTimeout).To(Equal(15 * time.Second))
			Expect(cfg.FetchMaxBytes).To(Equal(int64(20 << 20)))
			Expect(cfg.LogLevel).To(Equal(slog.LevelInfo))
			Expect(cfg.LogFormat).To(Equal("text"))
		})
	})

	When("values come from prefixed environment variables", func() {
		BeforeEach(func() {
			args = nil
			setEnv("AUTOCOMPANION_GEMINI_KEY", "env-key")
			setEnv("AUTOCOMPANION_PORT", "9090")
			setEnv("AUTOCOMPANION_CORS_ORIGINS", "https://a.example, https://b.example")
		})

		It("should read them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.GeminiKey).To(Equal("env-key"))
			Expect(cfg.Port).To(Equal(9090))
			Expect(cfg.CORSOrigins).To(Equal([]string{"https://a.example", "https://b.example"}))
		})
	})

	When("only GEMINI_API_KEY is set", func() {
		BeforeEach(func() {
			args = nil
			setEnv("GEMINI_API_KEY", "fallback")
		})

		It("should use it as the gemini key", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.GeminiKey).To(Equal("fallback"))
		})
	})

	When("the gemini key is missing", func() {
		BeforeEach(func() {
			args = nil
		})

		It("should fail validation", func() {
			Expect(err).To(MatchError(ContainSubstring("GEMINI_API_KEY")))
		})
	})

	When("the pixel cap is not positive", func() {
		BeforeEach(func() {
			args = append(args, "--ocr-max-pixels", "0")
		})

		It("should fail validation", func() {
			Expect(err).To(MatchError(ContainSubstring("ocr-max-pixels")))
		})
	})

	When("ollama generates and tesseract reads", func() {
		BeforeEach(func() {
			args = []string{"--generator", "ollama"}
		})

		It("should need no API key", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.OllamaModel).To(Equal("llama3"))
		})
	})

	When("the openai generator lacks a key", func() {
		BeforeEach(func() {
			args = []string{"--generator", "openai"}
		})

		It("should fail validation", func() {
			Expect(err).To(MatchError(ContainSubstring("OPENAI_API_KEY")))
		})
	})

	When("the postgres store lacks a dsn", func() {
		BeforeEach(func() {
			args = append(args, "--store", "postgres")
		})

		It("should fail validation", func() {
			Expect(err).To(MatchError(ContainSubstring("--postgres-dsn")))
		})
	})

	When("options are unknown", func() {
		BeforeEach(func() {
			args = append(args, "--generator", "bard", "--ocr-engine", "easyocr", "--log-format", "xml")
		})

		It("should report every problem", func() {
			Expect(err).To(MatchError(ContainSubstring("bard")))
			Expect(err).To(MatchError(ContainSubstring("easyocr")))
			Expect(err).To(MatchError(ContainSubstring("xml")))
		})
	})

	When("the log level is invalid", func() {
		BeforeEach(func() {
			args = append(args, "--log-level", "loud")
		})

		It("should fail", func() {
			Expect(err).To(MatchError(ContainSubstring("log level")))
		})
	})

	When("a flag is undefined", func() {
		BeforeEach(func() {
			args = []string{"--no-such-flag"}
		})

		It("should return a usage error with help text", func() {
			var usageErr *UsageError
			Expect(errors.As(err, &usageErr)).To(BeTrue())
			Expect(usageErr.Usage).To(ContainSubstring("ocr-psm"))
		})
	})

	When("only the version is requested", func() {
		BeforeEach(func() {
			args = []string{"--version"}
		})

		It("should skip validation", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ShowVersion).To(BeTrue())
		})
	})
})

var _ = Describe("LoadDotEnv", func() {
	It("ignores a missing file", func() {
		Expect(LoadDotEnv(filepath.Join(GinkgoT().TempDir(), ".env"))).To(Succeed())
	})

	It("loads variables without overriding the environment", func() {
		setEnv("AUTOCOMPANION_DOTENV_A", "")
		setEnv("AUTOCOMPANION_DOTENV_B", "kept")

		path := filepath.Join(GinkgoT().TempDir(), ".env")
		Expect(os.WriteFile(path, []byte("AUTOCOMPANION_DOTENV_A=loaded\nAUTOCOMPANION_DOTENV_B=ignored\n"), 0600)).To(Succeed())

		Expect(LoadDotEnv(path)).To(Succeed())
		Expect(os.Getenv("AUTOCOMPANION_DOTENV_A")).To(Equal("loaded"))
		Expect(os.Getenv("AUTOCOMPANION_DOTENV_B")).To(Equal("kept"))
	})
})

var _ = Describe("NewLogger", func() {
	It("writes JSON at the configured level", func() {
		var buf bytes.Buffer
		cfg := &Config{LogFormat: "json", LogLevel: slog.LevelWarn}
		logger := cfg.NewLogger(&buf)

		logger.Info("hidden")
		logger.Warn("shown", "k", "v")

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring(`"msg":"shown"`))
	})
})
