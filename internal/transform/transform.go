// Package transform lowers modern JavaScript syntax through esbuild so an
// engine without full ES2020+ support can still evaluate it.
package transform

import (
	"fmt"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

var targets = map[string]esbuild.Target{
	"es5":    esbuild.ES5,
	"es2015": esbuild.ES2015,
	"es2016": esbuild.ES2016,
	"es2017": esbuild.ES2017,
	"es2018": esbuild.ES2018,
	"es2019": esbuild.ES2019,
	"es2020": esbuild.ES2020,
	"esnext": esbuild.ESNext,
}

// Source transpiles src down to the named target. sourceURL is used in
// esbuild diagnostics only.
func Source(src, sourceURL, target string) (string, error) {
	tgt, ok := targets[strings.ToLower(target)]
	if !ok {
		return "", fmt.Errorf("unknown transform target %q", target)
	}

	result := esbuild.Transform(src, esbuild.TransformOptions{
		Target:     tgt,
		Loader:     esbuild.LoaderJS,
		Sourcefile: sourceURL,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			msgs = append(msgs, m.Text)
		}
		return "", fmt.Errorf("transforming %s: %s", sourceURL, strings.Join(msgs, "; "))
	}
	return string(result.Code), nil
}
