package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spectools/wavemon"
	"github.com/spectools/wavemon/internal/runlog"
)

var githash = "githash not computed"
var gitdate = "git date not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		if err2 := os.MkdirAll(dir, 0775); err2 != nil {
			return "", err2
		}
	}

	fullname := path.Join(dir, filename)
	_, err := os.Stat(fullname)
	if os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find
// config files and the filename and suffix. Sets the defaults.
func setupViper() error {
	viper.SetDefault("verbose", false)
	viper.SetDefault("resource", wavemon.DefaultBusConfig().Resource)
	viper.SetDefault("adapterDevice", wavemon.DefaultBusConfig().AdapterDevice)
	viper.SetDefault("adapterBaud", wavemon.DefaultBusConfig().AdapterBaud)
	viper.SetDefault("interval", wavemon.DefaultReadoutConfig().Interval)
	viper.SetDefault("maxPoints", wavemon.DefaultMaxPoints)
	viper.SetDefault("sidecar", true)
	viper.SetDefault("database", false)
	viper.SetDefault("syntheticMin", wavemon.SyntheticMin)
	viper.SetDefault("syntheticMax", wavemon.SyntheticMax)

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("Error finding User Home Dir: %s\n", err)
	}
	dotWavemon := filepath.Join(home, ".wavemon")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotWavemon, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.AddConfigPath(filepath.FromSlash("/etc/wavemon"))
	viper.AddConfigPath(dotWavemon)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probFile, err := os.OpenFile(pfname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		msg := fmt.Sprintf("Could not open log file '%s'", pfname)
		panic(msg)
	}
	probLogger := log.New(probFile, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	})
	return probLogger
}

func main() {
	buildDate = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	wavemon.Build.Date = buildDate
	wavemon.Build.Githash = githash
	wavemon.Build.Gitdate = gitdate
	wavemon.Build.Summary = fmt.Sprintf("WAVEMON version %s (git commit %s of %s)", wavemon.Build.Version, githash, gitdate)
	if host, err := os.Hostname(); err == nil {
		wavemon.Build.Host = host
	} else {
		wavemon.Build.Host = "host not detected"
	}

	if err := setupViper(); err != nil {
		panic(err)
	}

	printVersion := flag.Bool("version", false, "print version and quit")
	graph := flag.Bool("graph", false, "publish live display frames for plot clients")
	property := flag.String("property", wavemon.DefaultSettings().Property, "measurement property")
	resolution := flag.String("resolution", wavemon.DefaultSettings().Resolution, "display resolution")
	medium := flag.String("medium", wavemon.DefaultSettings().Medium, "measurement medium")
	averaging := flag.String("averaging", wavemon.DefaultSettings().Averaging, "averaging setting (ON or OFF)")
	synthetic := flag.Bool("synthetic", false, "synthetic mode: no hardware interfacing, pseudo-random values")
	resource := flag.String("resource", viper.GetString("resource"), "VISA-style instrument resource string")
	outputDir := flag.String("output", ".", "base directory for the readout/<timestamp>/ output")
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is WAVEMON version %s\n", wavemon.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		os.Exit(0)
	}

	banner := fmt.Sprintf("\nThis is WAVEMON version %s (git commit %s)\n", wavemon.Build.Version, githash)
	fmt.Print(banner)

	// Start logging problems and updates to 2 log files.
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(home, ".wavemon", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	logname, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		panic(err)
	}
	wavemon.ProblemLogger = startLogger(problemname)
	wavemon.UpdateLogger = startLogger(logname)
	fmt.Printf("Logging problems       to %s\n", problemname)
	fmt.Printf("Logging client updates to %s\n\n", logname)
	wavemon.UpdateLogger.Printf("\n\n\n\n%s", banner)

	settings := wavemon.Settings{
		Property:   *property,
		Resolution: *resolution,
		Medium:     *medium,
		Averaging:  *averaging,
	}
	busConfig := wavemon.BusConfig{
		Resource:      *resource,
		AdapterDevice: viper.GetString("adapterDevice"),
		AdapterBaud:   viper.GetInt("adapterBaud"),
	}
	if viper.GetBool("verbose") {
		fmt.Print(spew.Sdump(settings))
		fmt.Print(spew.Sdump(busConfig))
	}

	// Connect to the instrument before touching the filesystem: a failed
	// connection aborts the whole run with a nonzero status.
	var instrument wavemon.Instrument
	if *synthetic {
		fmt.Println("Synthetic mode enabled: no hardware connection.")
		instrument = wavemon.NewSyntheticInstrument(
			viper.GetFloat64("syntheticMin"), viper.GetFloat64("syntheticMax"))
	} else {
		wm, err := wavemon.OpenWavemeter(busConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to wavemeter: %v\n", err)
			os.Exit(1)
		}
		idn, err := wm.Identify()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error querying wavemeter: %v\n", err)
			wm.Close()
			os.Exit(1)
		}
		fmt.Println("Connected to instrument: " + idn)
		fmt.Println("Configuring wavemeter")
		instrument = wm
	}
	if err := instrument.Configure(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring wavemeter: %v\n", err)
		instrument.Close()
		os.Exit(1)
	}
	if !*synthetic {
		fmt.Println("Wavemeter configured")
	}

	recording, err := wavemon.NewRecording(*outputDir, viper.GetBool("sidecar"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output files: %v\n", err)
		instrument.Close()
		os.Exit(1)
	}

	stop := wavemon.NewStopSignal()
	var sink *wavemon.DisplaySink
	if *graph {
		sink = wavemon.NewDisplaySink(stop, wavemon.Ports.Data,
			viper.GetInt("maxPoints"), wavemon.DefaultDisplayInterval)
		fmt.Printf("Measurement started. Live frames on port %d (try waveplot); press Ctrl-C to stop.\n", wavemon.Ports.Data)
	} else {
		fmt.Println("Measurement started. Press Ctrl-C to stop.")
	}

	// Optional run metadata in the lab database.
	abort := make(chan struct{})
	db := runlog.Dummy()
	if viper.GetBool("database") {
		db = runlog.Start(abort)
	}
	runmsg := &runlog.RunMessage{
		ID:        runlog.NewRunID(),
		Hostname:  wavemon.Build.Host,
		Version:   wavemon.Build.Version,
		Resource:  busConfig.Resource,
		Property:  settings.Property,
		Synthetic: *synthetic,
		Directory: recording.Directory,
		Filename:  recording.CSVFilename,
		Start:     time.Now(),
	}
	db.RecordRun(runmsg)

	readout := wavemon.NewReadout(instrument, recording, sink, stop, wavemon.ReadoutConfig{
		Interval: viper.GetDuration("interval"),
		Property: settings.Property,
	})
	readout.Start()

	status := wavemon.ReadoutStatus{
		Synthetic: *synthetic,
		Resource:  busConfig.Resource,
		Property:  settings.Property,
		Directory: recording.Directory,
	}
	updates := make(chan wavemon.ClientUpdate)
	go wavemon.RunClientUpdater(updates, wavemon.Ports.Status, abort)
	control := wavemon.NewReadoutControl(readout, stop, status, updates)
	go func() {
		if err := wavemon.RunRPCServer(control, wavemon.Ports.RPC, abort); err != nil {
			wavemon.ProblemLogger.Printf("RPC server: %v", err)
		}
	}()

	// Wait for an interrupt or for the loop to end on its own (query error,
	// display-close, or RPC stop). Either way shut down cooperatively.
	interruptCatcher := make(chan os.Signal, 1)
	signal.Notify(interruptCatcher, os.Interrupt, syscall.SIGTERM)
	select {
	case <-interruptCatcher:
		fmt.Println("\nStopping measurement...")
		stop.Set()
	case <-stop.Done():
	}

	if err := readout.Wait(); err != nil {
		wavemon.ProblemLogger.Printf("readout ended with error: %v", err)
		fmt.Fprintf(os.Stderr, "\nMeasurement stopped: %v\n", err)
	}
	if sink != nil {
		sink.Close()
		<-sink.Done()
	}
	if err := instrument.Close(); err != nil {
		wavemon.ProblemLogger.Printf("closing instrument: %v", err)
	}
	runmsg.Rows = recording.Rows()
	db.FinishRun(runmsg)
	close(abort)
	db.Wait()

	fmt.Println("\nMeasurement completed.\nData saved to:", recording.Directory)
	os.Exit(0)
}
