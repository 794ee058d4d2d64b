package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/generate"
	"github.com/refaktor/hostbridge/introspect"
	"github.com/refaktor/hostbridge/loader"
	"github.com/refaktor/hostbridge/logger"
)

var optConfig string
var optOutput string
var optPkgName string
var optTags string

func init() {
	flag.StringVar(&optConfig, "config", "bridge.toml", "config file (.toml or .yaml)")
	flag.StringVar(&optOutput, "o", "", "output file (overrides generate.output)")
	flag.StringVar(&optPkgName, "pkg", "", "generated package name (overrides generate.package-name)")
	flag.StringVar(&optTags, "tags", "", "comma separated build tags used when loading packages")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `usage: bridgegen [options...] [go packages...]

options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(),
			`
examples:
  bridgegen
  	Generate the bindings configured in bridge.toml
  bridgegen -o strings_bindings.go -pkg bindings strings
  	Generate bindings for the strings package

Packages given as arguments replace generate.packages from the config.
`)
	}
}

func main() {
	flag.Parse()

	var cfg *config.Config
	if _, err := os.Stat(optConfig); err == nil {
		cfg, err = config.Load(optConfig)
		if err != nil {
			fmt.Println("Error:", err)
			if cfgErr, ok := err.(*config.Error); ok {
				fmt.Println(cfgErr.String())
			}
			os.Exit(1)
		}
	} else if flag.NArg() > 0 {
		cfg = config.Default()
	} else {
		fmt.Printf("Error: cannot read config %v: %v\n", optConfig, err)
		fmt.Println()
		flag.Usage()
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		cfg.Generate.Packages = flag.Args()
	}
	if optOutput != "" {
		cfg.Generate.Output = optOutput
	}
	if optPkgName != "" {
		cfg.Generate.PackageName = optPkgName
	}
	if cfg.Generate.Output == "" {
		cfg.Generate.Output = "bindings.go"
	}
	if cfg.Generate.PackageName == "" {
		cfg.Generate.PackageName = "bindings"
	}
	if len(cfg.Generate.Packages) == 0 {
		fmt.Println("Error:", "no packages to generate bindings for")
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.Log.Prefix, level)

	timeStart := time.Now()

	lc := &loader.Config{Patterns: cfg.Generate.Packages}
	if optTags != "" {
		lc.Tags = strings.Split(optTags, ",")
	}
	pkgs, err := loader.Load(lc)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	timeLoad := time.Since(timeStart)
	timeStart = time.Now()

	var inspected []*introspect.Package
	for _, pkg := range pkgs {
		p := introspect.Inspect(pkg.Types)
		log.Infof("%v: %v functions, %v enums", p.Path, len(p.Funcs), len(p.Enums))
		inspected = append(inspected, p)
	}

	var bindingList *config.BindingList
	if path := cfg.Generate.BindingList; path != "" {
		if _, err := os.Stat(path); err == nil {
			bindingList, err = config.LoadBindingListFromFile(path)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		} else {
			bindingList = config.NewBindingList()
		}
		if err := bindingList.SaveToFile(path, generate.ListDocs(inspected)); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	cb, err := generate.Generate(inspected, generate.Options{
		PackageName: cfg.Generate.PackageName,
		Rules:       cfg.Rules,
		List:        bindingList,
		Log:         log,
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.Generate.Output); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	}
	if fmtErr, err := cb.SaveToFile(cfg.Generate.Output); err != nil || fmtErr != nil {
		fmt.Println("save bindings:", "general:", err, "; fmt:", fmtErr)
		os.Exit(1)
	}

	timeGenerate := time.Since(timeStart)

	log.Infof("wrote %v for %v (load %v, generate %v)",
		cfg.Generate.Output, strings.Join(cfg.Generate.Packages, ", "),
		timeLoad.Round(time.Millisecond), timeGenerate.Round(time.Millisecond))
}
