// Package config resolves penv settings.
//
// Values are layered with github.com/spf13/viper, lowest to highest:
//
//  1. built-in defaults (Default)
//  2. a project config file: --config, or the first of .penv.yaml,
//     .penv.yml, .penv.json in the working directory
//  3. PENV_* environment variables (PENV_VENV, PENV_OFFLINE, ...)
//  4. command-line flags that were explicitly set
//
// .penv.json may contain comments and trailing commas; it is cleaned with
// github.com/tidwall/jsonc before viper sees it.
package config
