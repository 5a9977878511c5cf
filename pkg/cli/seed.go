package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/cli/config"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type seedInteraction struct {
	phone       string
	messageType types.MessageType
	content     string
	mediaPath   string
	mediaHash   string
	transcript  string
	daysAgo     int
	memory      string
	tags        []string
}

// seedData is sample content for local development and demos
var seedData = []seedInteraction{
	{
		phone:       "+1234567890",
		messageType: types.MessageTypeText,
		content:     "I'm planning to cook pasta tonight with mushrooms and cheese",
		daysAgo:     1,
		memory:      "User plans to cook pasta with mushrooms and cheese for dinner",
		tags:        []string{"cooking", "dinner", "pasta", "recipe"},
	},
	{
		phone:       "+1234567890",
		messageType: types.MessageTypeText,
		content:     "Grocery list: tomatoes, bread, milk, pasta, mushrooms, parmesan cheese",
		daysAgo:     2,
		memory:      "User's grocery shopping list includes tomatoes, bread, milk, pasta, mushrooms, and parmesan cheese",
		tags:        []string{"grocery", "shopping", "food", "ingredients"},
	},
	{
		phone:       "+1987654321",
		messageType: types.MessageTypeText,
		content:     "Meeting with the team tomorrow at 3 PM. Need to prepare presentation slides.",
		daysAgo:     3,
		memory:      "User has a team meeting scheduled for tomorrow at 3 PM and needs to prepare presentation slides",
		tags:        []string{"work", "meeting", "presentation", "schedule"},
	},
	{
		phone:       "+1234567890",
		messageType: types.MessageTypeImage,
		content:     "New haircut photo - looks great!",
		mediaPath:   "media/images/sample_haircut.jpg",
		mediaHash:   "abc123_haircut_hash",
		daysAgo:     5,
		memory:      "User got a new haircut and shared a photo showing the new look",
		tags:        []string{"personal", "appearance", "haircut", "photo"},
	},
	{
		phone:       "+441234567890",
		messageType: types.MessageTypeImage,
		content:     "Beautiful sunset from the beach vacation",
		mediaPath:   "media/images/sample_sunset.jpg",
		mediaHash:   "def456_sunset_hash",
		daysAgo:     7,
		memory:      "User shared a beautiful sunset photo from their beach vacation",
		tags:        []string{"vacation", "beach", "sunset", "photo", "travel"},
	},
	{
		phone:       "+1987654321",
		messageType: types.MessageTypeAudio,
		content:     "Voice note about daily tasks",
		mediaPath:   "media/audio/sample_todos.ogg",
		mediaHash:   "ghi789_audio_hash",
		transcript:  "Today's todos: grocery shopping, call mom, finish quarterly report, book dentist appointment",
		daysAgo:     4,
		memory:      "User's daily todos include grocery shopping, calling mom, finishing quarterly report, and booking dentist appointment",
		tags:        []string{"todos", "tasks", "personal", "work", "family"},
	},
	{
		phone:       "+441234567890",
		messageType: types.MessageTypeAudio,
		content:     "Recording about weekend plans",
		mediaPath:   "media/audio/sample_weekend.ogg",
		mediaHash:   "jkl012_weekend_hash",
		transcript:  "This weekend I want to visit the new art gallery downtown and try that Italian restaurant everyone's been talking about",
		daysAgo:     6,
		memory:      "User plans to visit new art gallery and try Italian restaurant this weekend",
		tags:        []string{"weekend", "plans", "art", "restaurant", "social"},
	},
}

func cmdSeed() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:  "seed",
		Usage: "Populate the database with sample data for local development",
		Flags: repoCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			return seed(ctx, repo)
		},
	}
}

func seed(ctx context.Context, repo interfaces.Repository) error {
	logger := logging.Default()
	now := time.Now().UTC()

	for _, item := range seedData {
		user, err := repo.User().GetOrCreate(ctx, item.phone, "whatsapp:"+item.phone)
		if err != nil {
			return goerr.Wrap(err, "failed to seed user", goerr.V("phone", item.phone))
		}

		interaction, created, err := repo.Interaction().Create(ctx, &model.Interaction{
			UserID:      user.ID,
			MessageSID:  types.MessageSID(fmt.Sprintf("SMseed%s", uuid.NewString()[:24])),
			MessageType: item.messageType,
			Content:     item.content,
			MediaPath:   item.mediaPath,
			MediaHash:   item.mediaHash,
			Transcript:  item.transcript,
			CreatedAt:   now.AddDate(0, 0, -item.daysAgo),
		})
		if err != nil {
			return goerr.Wrap(err, "failed to seed interaction")
		}
		if !created {
			continue
		}

		if _, err := repo.Memory().Create(ctx, &model.MemoryRecord{
			UserID:        user.ID,
			InteractionID: interaction.ID,
			Content:       item.memory,
			Tags:          item.tags,
			CreatedAt:     interaction.CreatedAt,
		}); err != nil {
			return goerr.Wrap(err, "failed to seed memory record")
		}

		logger.Info("seeded interaction",
			"phone", item.phone,
			"type", item.messageType,
			"days_ago", item.daysAgo,
		)
	}

	logger.Info("seeding completed", "interactions", len(seedData))
	return nil
}
