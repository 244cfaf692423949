package apix_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/Manus01/apix"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func Example() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":123,"name":"Ada"}`)
	}))
	defer server.Close()

	client := apix.New(server.URL,
		apix.WithRetries(2),
		apix.WithRetryDelay(100*time.Millisecond),
		apix.WithExponentialBackoff(),
		apix.WithTokenProvider(apix.StaticTokenProvider("tok")),
	)

	res := apix.Get[user](context.Background(), client, "/users/{id}",
		apix.WithPathParam("id", 123),
	)
	if res.OK {
		fmt.Println(res.Data.Name)
	} else {
		fmt.Println(res.Err.Code)
	}
	// Output: Ada
}

func Example_errorHandling() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"no such user"}`)
	}))
	defer server.Close()

	client := apix.New(server.URL)

	res := apix.Get[user](context.Background(), client, "/users/{id}",
		apix.WithPathParam("id", 999),
	)
	if !res.OK {
		fmt.Println(res.Err.Code, res.Err.Retriable, res.Err.Message)
	}
	// Output: NOT_FOUND false no such user
}
