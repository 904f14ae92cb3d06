// Package engineconfig validates and serialises the grammar engine's server
// options.
//
// Known keys each carry a kind (int, float, bool, list, path, string) that
// decides how the value is encoded; paths must exist. Keys of the form
// lang-<code> and lang-<code>-dictPath are accepted as per-language
// overrides. The result is written as key=value lines to a temporary file
// that is handed to the engine with --config.
package engineconfig
