package integrations_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/siete/assetforge/pkg/integrations"
)

func ExampleBearer() {
	fmt.Println(integrations.Bearer("  figd_abc  "))
	// Output:
	// Bearer figd_abc
}

func ExampleClient_Get() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"handle":"studio"}`)
	}))
	defer server.Close()

	client := integrations.NewClient(nil, "example", time.Minute, nil)
	var me struct {
		Handle string `json:"handle"`
	}
	if err := client.Get(context.Background(), server.URL+"/v1/me", &me); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println(me.Handle)
	// Output:
	// studio
}
