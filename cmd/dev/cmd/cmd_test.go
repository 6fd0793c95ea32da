package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangelogArgs(t *testing.T) {
	assert.Equal(t, []string{"--output", "CHANGELOG.md"}, changelogArgs("", "", ""))
	assert.Equal(t, []string{"--next-tag", "v0.2.0", "--output", "CHANGES.md", "v0.1.0"}, changelogArgs("CHANGES.md", "v0.2.0", "v0.1.0"))
}

func TestBuildCmd_UnknownBoard(t *testing.T) {
	cmd := BuildCmd()
	cmd.SetArgs([]string{"--board", "beaglebone"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "unknown board")
}

func TestSuitePackages(t *testing.T) {
	pkgs, err := suitePackages(nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"./..."}, pkgs)

	pkgs, err = suitePackages([]string{"transports", "cli"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"./i2c/...", "./adapter/...", "./cmd/..."}, pkgs)

	_, err = suitePackages([]string{"sensors"})
	assert.ErrorContains(t, err, `unknown suite "sensors" (have cli, driver, transports)`)
}

func TestGotestsumArgs(t *testing.T) {
	args := gotestsumArgs([]string{"./i2c/..."})
	assert.Equal(t, "run", args[0])
	assert.Equal(t, gotestsum, args[1])
	assert.Equal(t, "./i2c/...", args[len(args)-1])
}

func TestIntegrationEnv(t *testing.T) {
	env := integrationEnv("i2cdev", "24c02", "1", "50", "f0")
	assert.Equal(t, "1", env["TEST_INTEGRATION_ENABLED"])
	assert.Equal(t, "24c02", env["AT24_TEST_PART"])
	assert.Equal(t, "f0", env["AT24_TEST_OFFSET"])
}
