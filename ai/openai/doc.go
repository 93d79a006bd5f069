// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// The Gateway embeds text through the langchaingo openai client and lists
// models with GET /models. The Refiner asks a chat model, in JSON mode, to
// polish cleaned text. Both work against OpenAI itself and against
// compatible servers such as Ollama's /v1 endpoint, LocalAI or vLLM.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderOpenAI),
//	    ai.WithHost("https://api.openai.com"),  // /v1 added automatically
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    ai.WithDefaultModel("text-embedding-3-small"),
//	)
//
//	gateway, err := openai.NewGateway(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gateway.Close()
//
//	vector, err := gateway.Embed(ctx, "sample text", "")
package openai
