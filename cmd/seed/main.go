package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"

	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/domain/services"
	"notevault/internal/repository"
	"notevault/internal/repository/postgres"
	"notevault/internal/service"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
)

func main() {
	userFlag := flag.String("user", "", "Owner to seed (defaults to AUTH_DEV_USER_ID)")
	dropTables := flag.Bool("drop-tables", false, "Roll back all postgres migrations before seeding (fresh start)")
	clearData := flag.Bool("clear-data", false, "Delete the owner's folders and notes, then exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}
	if cfg.EncryptionKey == "" {
		log.Fatal("ENCRYPTION_KEY is required")
	}

	userID := *userFlag
	if userID == "" {
		userID = cfg.AuthDevUserID
	}
	if userID == "" {
		log.Fatal("No owner: pass --user or set AUTH_DEV_USER_ID")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *dropTables {
		if cfg.StorageDriver != config.DriverPostgres {
			log.Fatal("--drop-tables only applies to the postgres driver")
		}
		log.Println("Dropping all tables...")
		if err := dropAll(cfg); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		cfg.MigrateOnStart = true
	}

	ctx := context.Background()
	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	log.Printf("Clearing existing data for %s (environment: %s, prefix: %s)", userID, cfg.Environment, cfg.TablePrefix)
	if err := clearOwnerData(ctx, store, userID); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if *clearData {
		log.Println("Data cleared successfully")
		return
	}

	cipher, err := service.NewXChaChaCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to create content cipher: %v", err)
	}
	codec := service.NewGzipCodec(config.CompressionThreshold, config.MaxContentBytes, logger)
	folderService := service.NewFolderService(store.Folders, store.Notes, store.TxManager, logger)
	noteService := service.NewNoteService(store.Notes, store.Folders, folderService, store.TxManager, codec, cipher, logger)

	s := &seeder{folders: folderService, notes: noteService, userID: userID, ids: map[string]string{}}
	notes := seedNotes()
	for i, n := range notes {
		if err := s.createNote(ctx, n); err != nil {
			log.Printf("Failed to create note '%s/%s': %v", n.folder, n.title, err)
			continue
		}
		log.Printf("Created note %d/%d: %s", i+1, len(notes), strings.TrimPrefix(n.folder+"/"+n.title, "/"))
	}

	log.Println("Seeding complete!")
}

// dropAll rolls every migration back so the next open recreates the schema
func dropAll(cfg *config.Config) error {
	m, err := postgres.NewMigrator(cfg.DatabaseURL, cfg.TablePrefix)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// clearOwnerData deletes the owner's root; the cascade removes everything under it
func clearOwnerData(ctx context.Context, store *repository.Storage, userID string) error {
	root, err := store.Folders.GetRoot(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = store.Folders.Delete(ctx, root.ID, userID)
	return err
}

type seeder struct {
	folders services.FolderService
	notes   services.NoteService
	userID  string
	ids     map[string]string // folder path -> id
}

// folderID resolves a slash-separated path below the root, creating missing folders
func (s *seeder) folderID(ctx context.Context, path string) (*string, error) {
	if path == "" {
		return nil, nil
	}

	var parentID *string
	walked := ""
	for _, name := range strings.Split(path, "/") {
		walked = strings.TrimPrefix(walked+"/"+name, "/")
		if id, ok := s.ids[walked]; ok {
			parentID = &id
			continue
		}

		folder, err := s.folders.CreateFolder(ctx, &services.CreateFolderRequest{
			UserID:         s.userID,
			Name:           name,
			ParentFolderID: parentID,
		})
		if err != nil {
			return nil, err
		}
		s.ids[walked] = folder.ID
		parentID = &folder.ID
	}
	return parentID, nil
}

func (s *seeder) createNote(ctx context.Context, n seedNote) error {
	folderID, err := s.folderID(ctx, n.folder)
	if err != nil {
		return err
	}

	_, err = s.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:     s.userID,
		FolderID:   folderID,
		Title:      n.title,
		Content:    &n.content,
		IsFavorite: n.favorite,
		Tags:       n.tags,
	})
	return err
}

type seedNote struct {
	folder   string
	title    string
	content  string
	favorite bool
	tags     []string
}

func seedNotes() []seedNote {
	return []seedNote{
		{
			folder:   "Work/Meetings",
			title:    "Weekly sync",
			content:  "# Weekly sync\n\n- Review open incidents\n- Release checklist for Friday\n- Hiring pipeline update",
			tags:     []string{"meetings", "work"},
			favorite: true,
		},
		{
			folder:  "Work/Meetings",
			title:   "Design review: storage layer",
			content: "Decisions:\n1. Keep one transaction per tree mutation\n2. Version every note update\n\nOpen: retention policy for deleted notes.",
			tags:    []string{"design"},
		},
		{
			folder:  "Work",
			title:   "Onboarding checklist",
			content: "- Laptop setup\n- Access to the issue tracker\n- Read the architecture overview",
		},
		{
			folder:  "Personal/Recipes",
			title:   "Sourdough",
			content: "500g flour, 350g water, 100g starter, 10g salt.\nBulk ferment 5h, shape, cold proof overnight, bake 250C.",
			tags:    []string{"baking"},
		},
		{
			folder:  "Personal",
			title:   "Reading list",
			content: "- The Pragmatic Programmer\n- Designing Data-Intensive Applications\n- A Philosophy of Software Design",
			tags:    []string{"books"},
		},
		{
			folder:  "Personal",
			title:   "Travel journal",
			content: strings.Repeat("Day by day notes from the coast trip. Weather, food, people we met.\n", 400),
			tags:    []string{"travel"},
		},
		{
			title:    "Quick notes",
			content:  "Random ideas and thoughts to explore later.",
			favorite: true,
		},
	}
}
