package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// InstallDeps downloads the Playwright driver and Chromium.
func InstallDeps(log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("installing Playwright driver and Chromium")
	err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to install Playwright browsers: %w", err)
	}
	log.Info("Playwright installation complete")
	return nil
}

// CheckDeps reports whether the Playwright driver is installed.
func CheckDeps() bool {
	driver, err := playwright.NewDriver(&playwright.RunOptions{
		SkipInstallBrowsers: true,
		Verbose:             false,
	})
	if err != nil {
		return false
	}
	// fails when the driver binary is missing
	cmd := driver.Command("--version")
	return cmd.Run() == nil
}

// EnsureDeps installs the driver and Chromium unless already present.
func EnsureDeps(log *zap.Logger) error {
	if CheckDeps() {
		return nil
	}
	return InstallDeps(log)
}
