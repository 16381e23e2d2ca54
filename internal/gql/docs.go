package gql

import "net/http"

// Example is a documented operation with sample variables.
type Example struct {
	Name      string                 `json:"name"`
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Docs describes how to reach the API. It forwards no traffic.
type Docs struct {
	Title       string    `json:"title"`
	Endpoint    string    `json:"endpoint"`
	Methods     []string  `json:"methods"`
	Description string    `json:"description"`
	Examples    []Example `json:"examples"`
}

// DefaultDocs lists an example for every operation the schema exposes.
func DefaultDocs(endpoint string) Docs {
	return Docs{
		Title:    "Expense Tracker GraphQL API",
		Endpoint: endpoint,
		Methods:  []string{http.MethodPost, http.MethodGet},
		Description: "Send {query, variables, operationName} as JSON with POST. " +
			"GET accepts queries only. Use introspection for the full schema.",
		Examples: []Example{
			{
				Name: "expenses",
				Query: `query Expenses($filter: ExpenseFilterInput) {
  expenses(filter: $filter) { total expenses { id title amount category createdAt } }
}`,
				Variables: map[string]interface{}{
					"filter": map[string]interface{}{"category": "Food", "orderBy": "amount", "order": "DESC", "limit": 10},
				},
			},
			{
				Name:      "expense",
				Query:     `query Expense($id: ID!) { expense(id: $id) { id title amount category description createdAt } }`,
				Variables: map[string]interface{}{"id": "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b"},
			},
			{
				Name:  "expenseStatistics",
				Query: `{ expenseStatistics { totalCount totalAmount avgAmount categoryBreakdown { category count totalAmount } } }`,
			},
			{
				Name:  "createExpense",
				Query: `mutation Create($input: CreateExpenseInput!) { createExpense(createExpenseInput: $input) { id title amount } }`,
				Variables: map[string]interface{}{
					"input": map[string]interface{}{"title": "Lunch", "amount": 12.5, "category": "Food"},
				},
			},
			{
				Name:  "updateExpense",
				Query: `mutation Update($input: UpdateExpenseInput!) { updateExpense(updateExpenseInput: $input) { id title amount } }`,
				Variables: map[string]interface{}{
					"input": map[string]interface{}{"id": "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b", "amount": 15},
				},
			},
			{
				Name:      "removeExpense",
				Query:     `mutation Remove($id: ID!) { removeExpense(id: $id) }`,
				Variables: map[string]interface{}{"id": "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b"},
			},
		},
	}
}

// DocsHandler serves docs as JSON.
func DocsHandler(docs Docs) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	})
}
