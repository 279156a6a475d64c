package crm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.CRMConfig{
		BaseURL:  srv.URL,
		Token:    "tok",
		Pipeline: "Vendas",
	}, slog.New(slog.DiscardHandler))
}

func TestSearchLeadByPhone(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "5511999887766", r.URL.Query().Get("query"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_embedded": map[string]any{
				"leads": []map[string]any{{"id": 42, "name": "Ana"}},
			},
		})
	}))

	lead, err := client.SearchLeadByPhone(context.Background(), "5511999887766")
	require.NoError(t, err)
	assert.Equal(t, 42, lead.ID)
	assert.Equal(t, "Ana", lead.Name)
}

func TestSearchLeadByPhone_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"_embedded": map[string]any{"leads": []any{}}})
	}))

	_, err := client.SearchLeadByPhone(context.Background(), "5511999887766")
	require.ErrorIs(t, err, ErrLeadNotFound)
}

func TestCreateLead_ResolvesCustomFieldsAndTags(t *testing.T) {
	var fieldFetches int
	var createBody []map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/leads/custom_fields":
			fieldFetches++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"_embedded": map[string]any{
					"custom_fields": []map[string]any{
						{"id": 101, "name": "valor_conta"},
						{"id": 102, "name": "tipo_imovel"},
					},
				},
			})
		case "/api/v4/leads":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"_embedded": map[string]any{"leads": []map[string]any{{"id": 7}}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	lead := &Lead{
		Name:         "Ana - Solar",
		CustomFields: map[string]string{"valor_conta": "4500"},
		Tags:         []string{"sdr", "whatsapp"},
	}
	id, err := client.CreateLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	require.Len(t, createBody, 1)
	fields := createBody[0]["custom_fields_values"].([]any)
	require.Len(t, fields, 1)
	field := fields[0].(map[string]any)
	assert.Equal(t, float64(101), field["field_id"])
	tags := createBody[0]["_embedded"].(map[string]any)["tags"].([]any)
	assert.Len(t, tags, 2)

	// Second create reuses the cached field catalogue.
	_, err = client.CreateLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, 1, fieldFetches)
}

func TestMoveStage_ResolvesPipelineOnce(t *testing.T) {
	var pipelineFetches int
	var patchBody map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/leads/pipelines":
			pipelineFetches++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"_embedded": map[string]any{
					"pipelines": []map[string]any{
						{
							"name": "Outro",
							"_embedded": map[string]any{
								"statuses": []map[string]any{{"id": 1, "name": "reuniao_agendada"}},
							},
						},
						{
							"name": "Vendas",
							"_embedded": map[string]any{
								"statuses": []map[string]any{{"id": 55, "name": "reuniao_agendada"}},
							},
						},
					},
				},
			})
		case "/api/v4/leads/7":
			assert.Equal(t, http.MethodPatch, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patchBody))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{}"))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	require.NoError(t, client.MoveStage(context.Background(), 7, "reuniao_agendada"))
	assert.Equal(t, float64(55), patchBody["status_id"], "stage id must come from the configured pipeline")

	require.NoError(t, client.MoveStage(context.Background(), 7, "reuniao_agendada"))
	assert.Equal(t, 1, pipelineFetches)
}

func TestMoveStage_UnknownStage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"_embedded": map[string]any{"pipelines": []any{}}})
	}))

	err := client.MoveStage(context.Background(), 7, "inexistente")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pipeline stage")
}

func TestAddNote(t *testing.T) {
	var noteBody []map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/leads/7/notes", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&noteBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))

	require.NoError(t, client.AddNote(context.Background(), 7, "lead pediu proposta por email"))
	require.Len(t, noteBody, 1)
	params := noteBody[0]["params"].(map[string]any)
	assert.Equal(t, "lead pediu proposta por email", params["text"])
}
