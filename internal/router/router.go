package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "vet-clinic-records/docs" // registra la doc OpenAPI en swag
	"vet-clinic-records/internal/adapters/cache/rediscache"
	mem "vet-clinic-records/internal/adapters/storage/memory"
	pg "vet-clinic-records/internal/adapters/storage/postgres"
	"vet-clinic-records/internal/domain/documents"
	"vet-clinic-records/internal/domain/duplicates"
	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/domain/pets"
	"vet-clinic-records/internal/domain/visits"
	"vet-clinic-records/internal/middleware"
	"vet-clinic-records/internal/platform/logger"
	"vet-clinic-records/internal/platform/txn"
	"vet-clinic-records/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
	// Opcional: caché de uid -> paciente.
	Redis *redis.Client
	// Opcional: si es nil, blobs en memoria.
	Blobs documents.BlobStore

	Logger logger.Logger

	LockTimeout      time.Duration
	Location         *time.Location // zona de la clínica; nil = UTC
	RejectLegacyBase bool           // true = solo identificadores de 7 dígitos
	MaxUploadBytes   int64
}

type repos struct {
	tx        txn.Manager
	counters  identifiers.CounterRepository
	pets      pets.Repository
	visits    visits.Repository
	documents documents.Repository
	audit     duplicates.AuditRepository
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.EchoRequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	rp := buildRepos(opts)
	if opts.Redis != nil {
		rp.pets = rediscache.NewPetRepo(rp.pets, opts.Redis, rediscache.DefaultTTL, log.With(map[string]any{"component": "rediscache"}))
	}

	blobs := opts.Blobs
	if blobs == nil {
		blobs = mem.NewBlobStore()
	}

	// Services por módulo
	idsSvc := identifiers.NewService(rp.counters, rp.tx,
		identifiers.WithLocation(opts.Location),
		identifiers.WithAcceptLegacyBase(!opts.RejectLegacyBase),
	)
	petsSvc := pets.NewService(rp.pets, idsSvc, rp.tx)
	visitsSvc := visits.NewService(rp.visits, rp.pets, rp.tx, opts.Location)
	docsSvc := documents.NewService(documents.Deps{
		Repo:      rp.documents,
		Visits:    rp.visits,
		Patients:  rp.pets,
		Sequencer: visitsSvc,
		Blobs:     blobs,
		Tx:        rp.tx,
	},
		documents.WithLocation(opts.Location),
		documents.WithMaxBytes(opts.MaxUploadBytes),
	)
	dupSvc := duplicates.NewService(rp.audit, rp.pets, idsSvc, rp.tx)

	// Rutas por módulo
	identifiers.RegisterRoutes(r, idsSvc)
	pets.RegisterRoutes(r, petsSvc)
	visits.RegisterRoutes(r, visitsSvc, petsSvc)
	documents.RegisterRoutes(r, docsSvc, visitsSvc, petsSvc)
	duplicates.RegisterRoutes(r, dupSvc)

	return r
}

func buildRepos(opts Options) repos {
	if db := opts.DB; db != nil {
		return repos{
			tx:        pg.NewTxManager(db, lockTimeout(opts.LockTimeout)),
			counters:  pg.NewCountersRepo(db),
			pets:      pg.NewPetsRepo(db),
			visits:    pg.NewVisitsRepo(db),
			documents: pg.NewDocumentsRepo(db),
			audit:     pg.NewAuditRepo(db),
		}
	}

	store := mem.NewStore(lockTimeout(opts.LockTimeout))
	return repos{
		tx:        store,
		counters:  mem.NewCounterRepo(store),
		pets:      mem.NewPetRepo(store),
		visits:    mem.NewVisitRepo(store),
		documents: mem.NewDocumentRepo(store),
		audit:     mem.NewAuditRepo(store),
	}
}

func lockTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return mem.DefaultLockTimeout
	}
	return d
}
