package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/assignments"
	"github.com/timeliness-app/assignment-tracker/pkg/auth/encryption"
	"github.com/timeliness-app/assignment-tracker/pkg/canvas"
	"github.com/timeliness-app/assignment-tracker/pkg/communication"
	"github.com/timeliness-app/assignment-tracker/pkg/environment"
	"github.com/timeliness-app/assignment-tracker/pkg/locking"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"github.com/timeliness-app/assignment-tracker/pkg/notifications"
	"github.com/timeliness-app/assignment-tracker/pkg/preferences"
	"github.com/timeliness-app/assignment-tracker/pkg/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const serviceName = "assignment-tracker"

// cachedEntries is the size of the read-through cache in front of remote storage
const cachedEntries = 16

func main() {
	var logging logger.Interface = logger.Logger{}
	fmt.Println("Server is starting up...")

	env, err := environment.Load(".env")
	if err != nil {
		logging.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if env.GCPProjectID != "" {
		googleLogger, err := logger.NewGoogleLogger(ctx, env.GCPProjectID, serviceName)
		if err != nil {
			logging.Fatal(err)
		}
		defer googleLogger.Close()
		logging = googleLogger
	}

	if env.IsProduction() {
		err := profiler.Start(profiler.Config{Service: serviceName, ProjectID: env.GCPProjectID})
		if err != nil {
			logging.Error("Could not start profiler", err)
		}
	}

	location, err := time.LoadLocation(env.TimeZone)
	if err != nil {
		logging.Fatal(err)
	}

	cipher, err := encryption.New(env.Secret)
	if err != nil {
		logging.Fatal(err)
	}

	var redisClient *redis.Client
	if env.Redis != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     env.Redis,
			Password: env.RedisPassword,
		})

		err = redisClient.Ping(ctx).Err()
		if err != nil {
			logging.Fatal(err)
		}
		defer redisClient.Close()

		logging.Info("Redis connected")
	}

	kv, closeStorage, err := openStorage(ctx, env, redisClient, logging)
	if err != nil {
		logging.Fatal(err)
	}
	defer closeStorage()

	store, err := assignments.NewStore(ctx, kv, logging, assignments.Options{
		Location: location,
		Classes:  env.ClassList(),
	})
	if err != nil {
		logging.Fatal(err)
	}

	bridgeOptions := canvas.BridgeOptions{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Cipher:     cipher,
	}
	if env.CorsProxy != "" {
		bridgeOptions.Rewrite = canvas.CORSProxy(env.CorsProxy)
	}
	if redisClient != nil {
		bridgeOptions.Cache = canvas.NewCourseCacheRedis(redisClient)
		bridgeOptions.Locker = locking.NewLockerRedis(redisClient)
	}

	bridge, err := canvas.NewBridge(ctx, kv, store, logging, bridgeOptions)
	if err != nil {
		logging.Fatal(err)
	}

	notificationController := notifications.NewNotificationController(logging, store.Now)
	store.Subscribe(notificationController)

	responseManager := &communication.ResponseManager{Logger: logging}

	assignmentHandler := assignments.Handler{Store: store, Logger: logging, ResponseManager: responseManager}
	canvasHandler := canvas.Handler{Bridge: bridge, Logger: logging, ResponseManager: responseManager}
	preferencesHandler := preferences.Handler{
		Themes:          preferences.NewThemes(kv, logging),
		Logger:          logging,
		ResponseManager: responseManager,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)

		_, err := fmt.Fprint(writer, "Welcome to the assignment tracker API! ✔")
		if err != nil {
			logging.Error("Could not write welcome message", err)
		}
	})

	v1 := r.PathPrefix("/v1").Subrouter()
	assignmentHandler.Register(v1)
	canvasHandler.Register(v1)
	preferencesHandler.Register(v1)
	notificationController.Register(v1)

	server := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           cors(env.Cors, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logging.Info(fmt.Sprintf("Listening on port %s (%s, storage %s)", env.Port, env.Environment, env.Storage))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()

		logging.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if err != nil {
		logging.Error("Server stopped with an error", err)
		return
	}

	logging.Info("Server shutdown complete")
}

// openStorage builds the backend named by STORAGE. Remote backends get a read-through cache.
func openStorage(ctx context.Context, env *environment.Environment, redisClient *redis.Client,
	logging logger.Interface) (storage.Interface, func(), error) {
	switch env.Storage {
	case environment.StorageMemory:
		logging.Info("Using in-memory storage, nothing survives a restart")
		return storage.NewMemory(), func() {}, nil

	case environment.StorageBolt:
		bolt, err := storage.NewBolt(env.StoragePath)
		if err != nil {
			return nil, nil, err
		}

		return bolt, func() {
			if err := bolt.Close(); err != nil {
				logging.Error("Could not close bolt storage", err)
			}
		}, nil

	case environment.StorageRedis:
		if redisClient == nil {
			return nil, nil, errors.Errorf("storage %s needs REDIS", env.Storage)
		}

		cached, err := storage.NewCached(storage.NewRedis(redisClient, serviceName+":"), cachedEntries)
		return cached, func() {}, err

	case environment.StorageMongo:
		client, err := mongo.NewClient(options.Client().ApplyURI(env.DatabaseURL))
		if err != nil {
			return nil, nil, err
		}

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		err = client.Connect(connectCtx)
		if err != nil {
			return nil, nil, err
		}

		err = client.Ping(connectCtx, nil)
		if err != nil {
			return nil, nil, err
		}

		logging.Info("Database connected")

		collection := client.Database(env.Database).Collection("KeyValues")
		cached, err := storage.NewCached(&storage.Mongo{DB: collection}, cachedEntries)

		return cached, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logging.Error("Could not disconnect from database", err)
			}
		}, err

	default:
		return nil, nil, errors.Errorf("unknown storage %q", env.Storage)
	}
}

// cors answers preflight requests and allows origin on every response
func cors(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", origin)
		writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if request.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(writer, request)
	})
}
