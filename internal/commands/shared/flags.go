// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

// Global flag values - set by root command
var (
	verboseFlag      bool
	quietFlag        bool
	jsonFlag         bool
	configFlag       string
	logLevelFlag     string
	printMetricsFlag bool

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// GlobalFlags holds pointers the root command binds its persistent flags to.
type GlobalFlags struct {
	Verbose      *bool
	Quiet        *bool
	JSON         *bool
	Config       *string
	LogLevel     *string
	PrintMetrics *bool
}

// RegisterFlagPointers returns pointers to flag variables for binding.
func RegisterFlagPointers() GlobalFlags {
	return GlobalFlags{
		Verbose:      &verboseFlag,
		Quiet:        &quietFlag,
		JSON:         &jsonFlag,
		Config:       &configFlag,
		LogLevel:     &logLevelFlag,
		PrintMetrics: &printMetricsFlag,
	}
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return configFlag
}

// GetLogLevel returns the --log-level override, empty when unset.
func GetLogLevel() string {
	return logLevelFlag
}

// GetPrintMetrics reports whether metrics are dumped to stderr on exit.
func GetPrintMetrics() bool {
	return printMetricsFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// ResetFlagsForTest restores every global flag to its zero value.
func ResetFlagsForTest() {
	verboseFlag, quietFlag, jsonFlag, printMetricsFlag = false, false, false, false
	configFlag, logLevelFlag = "", ""
}

// SetConfigPathForTest sets the config path for testing purposes
func SetConfigPathForTest(path string) {
	configFlag = path
}

// SetJSONForTest toggles JSON output for testing purposes
func SetJSONForTest(v bool) {
	jsonFlag = v
}
