package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/matchtag/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.KickoutDelaySeconds, convey.ShouldEqual, 1)
			convey.So(cfg.FoulOffsetSeconds, convey.ShouldEqual, 0.1)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When postgres is selected without a DSN", func() {
			cfg.StoreDriver = config.StorePostgres
			err := cfg.Validate()

			convey.Convey("Then it is invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres_dsn")
			})
		})

		convey.Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "sqlite"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the kickout delay is negative", func() {
			cfg.KickoutDelaySeconds = -1
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
