package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/restapi"
)

// rajada dispara N chamadas JSON-RPC concorrentes contra o gateway e imprime
// o histograma de resultados. Serve para validar o rate limit na mão:
//
//	go run ./teste-validacao/rajada -url http://localhost:8081/ -n 20 -c 5
type rpcRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	ID      int      `json:"id"`
	Params  []string `json:"params"`
}

type rpcResponse struct {
	Result *string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	url := flag.String("url", "http://localhost:8081/", "gateway URL")
	n := flag.Int("n", 20, "total requests")
	c := flag.Int("c", 5, "concurrent workers")
	method := flag.String("method", "get", "rpc method")
	key := flag.String("key", "user1", "key used by get/set")
	client := flag.String("client", "", "value for X-Client header (empty: none)")
	flag.Parse()

	logger, closeLogger := log.NewLogger(&log.Config{Output: log.OutputStderr, Format: log.FormatText, Level: log.LevelWarn})
	defer closeLogger()

	params := []string{*key}
	if *method == "set" {
		params = append(params, "rajada")
	}

	httpClient := &http.Client{Timeout: 5 * time.Second}
	jobs := make(chan int)
	var mu sync.Mutex
	hist := map[string]int{}

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < *c; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				outcome := call(httpClient, *url, *client, rpcRequest{JSONRPC: "2.0", Method: *method, ID: id, Params: params}, logger)
				mu.Lock()
				hist[outcome]++
				mu.Unlock()
			}
		}()
	}
	for i := 1; i <= *n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	outcomes := make([]string, 0, len(hist))
	for k := range hist {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)

	fmt.Printf("%d requests in %s\n", *n, time.Since(start).Round(time.Millisecond))
	for _, k := range outcomes {
		fmt.Printf("  %-24s %d\n", k, hist[k])
	}
	if hist["transport error"] > 0 {
		os.Exit(1)
	}
}

func call(client *http.Client, url, clientID string, body rpcRequest, logger log.FieldLogger) string {
	req, err := restapi.NewJSONRequest(http.MethodPost, url, body)
	if err != nil {
		logger.Error("build request", log.Error(err))
		return "transport error"
	}
	if clientID != "" {
		req.Header.Set("X-Client", clientID)
	}

	var resp rpcResponse
	if err := restapi.DoRequestAndUnmarshalJSON(client, req, &resp, logger); err != nil {
		var clientErr *restapi.ClientError
		if errors.As(err, &clientErr) && clientErr.StatusCode != 0 {
			return fmt.Sprintf("http %d", clientErr.StatusCode)
		}
		return "transport error"
	}
	if resp.Error != nil {
		return fmt.Sprintf("error %d", resp.Error.Code)
	}
	return "ok"
}
