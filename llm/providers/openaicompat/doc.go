// Package openaicompat implements llm.Provider for OpenAI Chat Completions
// and Azure OpenAI deployments.
//
// Both share the same request/response format. Azure differs only in the URL
// layout (/openai/deployments/{deployment}/chat/completions?api-version=...)
// and the api-key header.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "azure",
//	    Flavor:       openaicompat.FlavorAzure,
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://myres.openai.azure.com",
//	    Deployment:   "gpt-35-turbo",
//	}, logger)
package openaicompat
