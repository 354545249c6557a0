package supabase

import (
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// FunctionsClient invokes one edge function by name.
type FunctionsClient struct {
	client   *supabase.Client
	function string
}

func NewFunctionsClient(client *supabase.Client, function string) *FunctionsClient {
	return &FunctionsClient{
		client:   client,
		function: function,
	}
}

func (f *FunctionsClient) Invoke(payload map[string]interface{}) error {
	if _, err := f.client.Functions.Invoke(f.function, payload); err != nil {
		return fmt.Errorf("failed to invoke %s: %w", f.function, err)
	}
	return nil
}
