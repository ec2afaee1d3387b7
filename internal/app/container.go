package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/facility-booking-bot/internal/api"
	"github.com/nekogravitycat/facility-booking-bot/internal/approval"
	"github.com/nekogravitycat/facility-booking-bot/internal/auth"
	"github.com/nekogravitycat/facility-booking-bot/internal/bot"
	"github.com/nekogravitycat/facility-booking-bot/internal/directory"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
	"github.com/nekogravitycat/facility-booking-bot/internal/session"
	"github.com/nekogravitycat/facility-booking-bot/internal/telegram"
	"github.com/nekogravitycat/facility-booking-bot/internal/validate"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	BotToken     string
	JWTSecret    string
	JWTTokenTTL  time.Duration
	PollTimeout  int
	AllowedUsers []int64
	AdminUsers   map[int64]string
	Logger       *logrus.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router       *gin.Engine
	Telegram     *telegram.Client
	Poller       *telegram.Poller
	Reservations reservation.Service
	JWTManager   *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTokenTTL)
	dir := directory.New(cfg.AllowedUsers, cfg.AdminUsers)
	emails := validate.NewEmailChecker()

	// Reservation module
	cache := reservation.NewCache()
	repo := reservation.NewPgxRepository(cfg.DBPool)
	reservations := reservation.NewService(repo, cache,
		cfg.Logger.WithField("component", "reservation"))

	// Chat transport
	tgClient := telegram.NewClient(cfg.BotToken)

	// Booking conversation module
	sessions := session.NewManager()
	machine := session.NewMachine(reservations, emails, nil)

	// Approval module
	approvals := approval.NewCoordinator(tgClient, dir, reservations,
		cfg.Logger.WithField("component", "approval"))

	// Engine + poller
	engine := bot.NewEngine(sessions, machine, reservations, approvals, dir,
		tgClient, emails, cfg.Logger.WithField("component", "engine"))
	poller := telegram.NewPoller(tgClient, engine, cfg.PollTimeout,
		cfg.Logger.WithField("component", "poller"))

	// Operator API
	router := api.NewRouter(api.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		Reservations: reservations,
		JWTManager:   jwtManager,
	})

	return &Container{
		Router:       router,
		Telegram:     tgClient,
		Poller:       poller,
		Reservations: reservations,
		JWTManager:   jwtManager,
	}
}
