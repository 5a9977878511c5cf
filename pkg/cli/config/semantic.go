package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/semantic/local"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/semantic/mem0"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Semantic holds CLI flags for the semantic memory backend
type Semantic struct {
	backend       string
	mem0APIKey    string
	mem0OrgID     string
	mem0ProjectID string
	localPath     string
}

// Flags returns CLI flags for semantic backend configuration
func (s *Semantic) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "semantic-backend",
			Usage:       "Semantic memory backend (mem0, local or none)",
			Value:       "local",
			Sources:     cli.EnvVars("WMA_SEMANTIC_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "mem0-api-key",
			Usage:       "mem0 API key (required when using mem0 backend)",
			Sources:     cli.EnvVars("WMA_MEM0_API_KEY", "MEM0_API_KEY"),
			Destination: &s.mem0APIKey,
		},
		&cli.StringFlag{
			Name:        "mem0-org-id",
			Usage:       "mem0 organization ID",
			Sources:     cli.EnvVars("WMA_MEM0_ORG_ID", "MEM0_ORG_ID"),
			Destination: &s.mem0OrgID,
		},
		&cli.StringFlag{
			Name:        "mem0-project-id",
			Usage:       "mem0 project ID",
			Sources:     cli.EnvVars("WMA_MEM0_PROJECT_ID", "MEM0_PROJECT_ID"),
			Destination: &s.mem0ProjectID,
		},
		&cli.StringFlag{
			Name:        "semantic-local-path",
			Usage:       "Persistence directory for the local semantic index (in-memory when empty)",
			Sources:     cli.EnvVars("WMA_SEMANTIC_LOCAL_PATH"),
			Destination: &s.localPath,
		},
	}
}

// Backend returns the configured backend type
func (s *Semantic) Backend() string {
	return s.backend
}

// Configure builds the semantic index for the configured backend.
// Returns nil for the "none" backend; ingestion keeps working and
// search falls back to relational records.
func (s *Semantic) Configure(llmClient gollem.LLMClient) (interfaces.SemanticIndex, error) {
	switch s.backend {
	case "mem0":
		index, err := mem0.New(s.mem0APIKey, s.mem0OrgID, s.mem0ProjectID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize mem0 backend")
		}
		logging.Default().Info("Using mem0 semantic backend")
		return index, nil

	case "local":
		if llmClient == nil {
			logging.Default().Warn("Local semantic backend requires an LLM client for embeddings, semantic search disabled")
			return nil, nil
		}
		var opts []local.Option
		if s.localPath != "" {
			opts = append(opts, local.WithPath(s.localPath))
		}
		index, err := local.New(llmClient, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize local semantic index")
		}
		logging.Default().Info("Using local semantic backend", "path", s.localPath)
		return index, nil

	case "none":
		logging.Default().Info("Semantic backend disabled")
		return nil, nil

	default:
		return nil, goerr.New("invalid semantic backend", goerr.V("backend", s.backend))
	}
}
