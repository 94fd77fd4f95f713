package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/matrixpi/gomatrix/comms"
	"github.com/matrixpi/gomatrix/onboard"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"MATRIX_DEVICE_ID" envDefault:"DEV"`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	DBFILE     string `env:"DBFILE" envDefault:"./tmp/matrix.db"`
	DB         *storm.DB
	Conductor  *comms.Conductor
	Simulated  bool
}

var (
	ENV *EnvConfig
)

func init() {
	// Load main config
	ENV = new(EnvConfig)
	env.Parse(ENV)

	// setup database
	dbFile, _ := filepath.Abs(ENV.DBFILE)
	dir := filepath.Dir(dbFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		os.Mkdir(dir, 0755)
	}

	db, err := openDb(dbFile)
	if err != nil {
		panic(err)
	}
	ENV.DB = db
}

func main() {
	// process flags
	simulated := flag.Bool("sim", false, "Run the rig against a simulated bus")
	port := flag.String("port", "0.0.0.0:8080", "Specify the ip:port to listen on")
	configFile := flag.String("config", "", "Path to the rig yaml config")
	flag.Parse()

	if ENV.DEBUG {
		logrus.SetLevel(logrus.DebugLevel)
	}

	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	defer ENV.DB.Close() // close database when finished

	// Load the rig config
	filename := *configFile
	if filename == "" {
		var err error
		filename, err = filepath.Abs(ENV.SRCDIR + "/matrix_config.yaml")
		if err != nil {
			panic(err)
		}
	}

	yamlFile, err := ioutil.ReadFile(filename)
	if err != nil {
		logrus.WithError(err).Fatal("unable to read rig config")
	}

	var config onboard.RigConfig
	if err = yaml.Unmarshal(yamlFile, &config); err != nil {
		logrus.WithError(err).Fatal("unable to unmarshal rig config")
	}

	var rig *onboard.MatrixRig

	ENV.Simulated = *simulated
	if ENV.Simulated {
		logrus.Info("creating rig simulator")
		rig, err = onboard.NewRigSimulator(config)
	} else {
		rig, err = onboard.NewMatrixRig(config)
	}
	if err != nil {
		logrus.WithError(err).Fatal("unable to initialize rig")
	}

	ENV.Conductor = new(comms.Conductor)
	ENV.Conductor.Device = rig

	go ENV.Conductor.UpdateClients()

	//---
	// Create a local shell
	//---
	{
		controllerNames := func([]string) []string {
			keys := make([]string, 0, len(rig.Controllers))
			for k := range rig.Controllers {
				keys = append(keys, k)
			}
			return keys
		}

		shell := ishell.New()
		shell.Println("Matrix rig development shell")
		shell.ShowPrompt(true)

		shell.AddCmd(&ishell.Cmd{
			Name: "createsuperuser",
			Help: "createsuperuser <email> <password>",
			Func: func(c *ishell.Context) {
				// disable the '>>>' for cleaner same line input.
				c.ShowPrompt(false)
				defer c.ShowPrompt(true) // yes, revert when done.

				// get email
				var email string
				if len(c.Args) >= 1 {
					email = c.Args[0]
				} else {
					c.Print("Email: ")
					email = c.ReadLine()
				}

				// get password
				var password string
				if len(c.Args) >= 2 {
					password = c.Args[1]
				} else {
					c.Print("Password: ")
					password = c.ReadPassword()
				}

				// create user
				user := &User{
					Email: email,
					Name:  email,
					Admin: true,
				}
				user.SetPassword([]byte(password))
				if err := ENV.DB.Save(user); err != nil {
					panic(err)
				}

				c.Println("Superuser created")
			},
		})

		// Add device specific commands
		shell.AddCmd(&ishell.Cmd{
			Name:      "info",
			Completer: controllerNames,
			Help:      "info <controller>",
			Func: func(c *ishell.Context) {
				ctl, ok := rig.Controllers[c.Args[0]]
				if !ok {
					c.Err(fmt.Errorf("no such controller %s", c.Args[0]))
					return
				}

				info, err := ctl.Info()
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("%s %s firmware %s at 0x%02X\n", info.Manufacturer, info.Type, info.Version, ctl.Addr())
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name:      "status",
			Completer: controllerNames,
			Help:      "status <controller>",
			Func: func(c *ishell.Context) {
				ctl, ok := rig.Controllers[c.Args[0]]
				if !ok {
					c.Err(fmt.Errorf("no such controller %s", c.Args[0]))
					return
				}

				status, err := ctl.Status()
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("battery %dmV  low:%v  fault:%v\n", status.BatteryMV, status.BattLow, status.Fault)
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name:      "servo",
			Completer: controllerNames,
			Help:      "servo <controller> <channel> <target>",
			Func: func(c *ishell.Context) {
				name := c.Args[0]
				channel, _ := strconv.Atoi(c.Args[1])
				target, _ := strconv.Atoi(c.Args[2])

				c.Printf("Moving servo %s:%d to %d\n", name, channel, target)
				if err := rig.EnableServo(name, channel, true); err != nil {
					c.Err(err)
					return
				}
				if err := rig.SetServoTarget(name, channel, uint8(target)); err != nil {
					c.Err(err)
				}
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name:      "motor",
			Completer: controllerNames,
			Help:      "motor <controller> <channel> <speed>",
			Func: func(c *ishell.Context) {
				name := c.Args[0]
				channel, _ := strconv.Atoi(c.Args[1])
				speed, _ := strconv.Atoi(c.Args[2])

				c.Printf("Running motor %s:%d at %d\n", name, channel, speed)
				if err := rig.SetMotorSpeed(name, channel, speed); err != nil {
					c.Err(err)
				}
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name: "drive",
			Help: "drive <vx> <vy> <wz>",
			Func: func(c *ishell.Context) {
				vx, _ := strconv.ParseFloat(c.Args[0], 64)
				vy, _ := strconv.ParseFloat(c.Args[1], 64)
				wz, _ := strconv.ParseFloat(c.Args[2], 64)

				if err := rig.Drive(vx, vy, wz); err != nil {
					c.Err(err)
				}
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name: "stop",
			Help: "stop all motion on every controller",
			Func: func(c *ishell.Context) {
				if err := rig.Stop(); err != nil {
					c.Err(err)
				}
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name:      "timeout",
			Completer: controllerNames,
			Help:      "timeout <controller> <seconds>",
			Func: func(c *ishell.Context) {
				ctl, ok := rig.Controllers[c.Args[0]]
				if !ok {
					c.Err(fmt.Errorf("no such controller %s", c.Args[0]))
					return
				}
				seconds, _ := strconv.Atoi(c.Args[1])

				if err := ctl.SetTimeout(seconds); err != nil {
					c.Err(err)
					return
				}
				c.Printf("watchdog set to %ds\n", seconds)
			},
		})

		{
			// Pose specific commands
			poseCmd := &ishell.Cmd{
				Name: "pose",
				Help: "save and replay servo poses",
			}

			poseCmd.AddCmd(&ishell.Cmd{
				Name: "save",
				Help: "pose save <name> - capture the enabled servos",
				Func: func(c *ishell.Context) {
					pose, err := CapturePose(c.Args[0], rig)
					if err != nil {
						c.Err(err)
						return
					}

					var existing Pose
					if err := ENV.DB.One("Name", pose.Name, &existing); err == nil {
						pose.ID = existing.ID
					}

					if err := ENV.DB.Save(pose); err != nil {
						c.Err(err)
						return
					}
					c.Printf("saved %d channels as %s\n", len(pose.Channels), pose.Name)
				},
			})

			poseCmd.AddCmd(&ishell.Cmd{
				Name: "apply",
				Help: "pose apply <name>",
				Func: func(c *ishell.Context) {
					var pose Pose
					if err := ENV.DB.One("Name", c.Args[0], &pose); err != nil {
						c.Err(err)
						return
					}

					if err := pose.Apply(rig); err != nil {
						c.Err(err)
					}
				},
			})

			shell.AddCmd(poseCmd)
		}

		// Start an instance of the shell so it can be controlled from the CLI
		go shell.Start()
	}

	//---
	// Build the API routes
	//---
	r.Route("/api", func(r chi.Router) {
		// login
		r.Post("/login", Login)

		r.Group(func(r chi.Router) {
			// Seek, verify and validate JWT tokens
			r.Use(ValidateJWT)

			r.Get("/refresh_token", JWTRefresh)
			r.Get("/state", StateHandler)
			r.Post("/drive", DriveHandler)
			r.Post("/stop", StopHandler)
			r.Post("/controllers/{name}/servos/{channel}", ServoHandler)
			r.Post("/controllers/{name}/motors/{channel}", MotorHandler)

			r.Route("/poses", func(r chi.Router) {
				r.Get("/", PoseListHandler)
				r.Post("/", PoseSaveHandler)
				r.Post("/{pose}/apply", PoseApplyHandler)
				r.Delete("/{pose}", PoseDeleteHandler)
			})
		})
	})

	// Add websocket routes
	r.Route("/ws", func(r chi.Router) {
		if !ENV.DEBUG {
			// Enable JWT validation in production
			r.Use(ValidateJWT)
		} else {
			logrus.Warn("running in debug mode, websocket authentication disabled")
		}

		r.Get("/state", WSStateHandler)
	})

	logrus.WithField("port", *port).Info("listening")
	if err := http.ListenAndServe(*port, r); err != nil {
		logrus.Fatal(err)
	}
}

func openDb(dbFile string) (db *storm.DB, err error) {
	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		return nil, err
	}
	if err := db.Init(&Pose{}); err != nil {
		return nil, err
	}

	return
}
