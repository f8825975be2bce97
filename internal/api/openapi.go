package api

// Minimal OpenAPI document served at /swagger.json.
const openAPISpec = `{
  "openapi": "3.0.0",
  "info": {
    "title": "Stock Service API",
    "version": "1.0.0"
  },
  "paths": {
    "/health": {
      "get": {
        "summary": "Health check",
        "responses": {
          "200": {
            "description": "Service is healthy",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/HealthResponse"}}}
          }
        }
      }
    },
    "/api/inventory/low-stock": {
      "get": {
        "summary": "Products at or below their low-stock threshold",
        "parameters": [
          {"name": "limit", "in": "query", "schema": {"type": "integer", "default": 50}}
        ],
        "responses": {
          "200": {
            "description": "Low-stock products, lowest available first",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/StockResponse"}}}}
          }
        }
      }
    },
    "/api/inventory/{productId}": {
      "get": {
        "summary": "Product with stock counters",
        "parameters": [{"$ref": "#/components/parameters/ProductId"}],
        "responses": {
          "200": {
            "description": "Product found",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/StockResponse"}}}
          },
          "404": {"description": "Product not found"}
        }
      }
    },
    "/api/inventory/{productId}/availability": {
      "get": {
        "summary": "Whether quantity units are available",
        "parameters": [
          {"$ref": "#/components/parameters/ProductId"},
          {"name": "quantity", "in": "query", "schema": {"type": "integer", "default": 1}}
        ],
        "responses": {
          "200": {"description": "Availability answer"},
          "400": {"description": "Quantity is not positive"}
        }
      }
    },
    "/api/inventory/{productId}/history": {
      "get": {
        "summary": "Ledger entries, newest first",
        "parameters": [
          {"$ref": "#/components/parameters/ProductId"},
          {"name": "limit", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {
          "200": {
            "description": "History",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/HistoryEntry"}}}}
          },
          "404": {"description": "Product not found"}
        }
      }
    },
    "/api/inventory/{productId}/reconcile": {
      "get": {
        "summary": "Replay the ledger and compare against counters and reservations",
        "parameters": [{"$ref": "#/components/parameters/ProductId"}],
        "responses": {
          "200": {"description": "Reconcile report"},
          "404": {"description": "Product not found"}
        }
      }
    },
    "/api/inventory/{productId}/restock": {
      "post": {
        "summary": "Add units to on-hand",
        "parameters": [{"$ref": "#/components/parameters/ProductId"}, {"$ref": "#/components/parameters/UserId"}],
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/StockChangeRequest"}}}},
        "responses": {
          "200": {"description": "Updated counters"},
          "400": {"description": "Invalid quantity"},
          "404": {"description": "Product not found"}
        }
      }
    },
    "/api/inventory/{productId}/adjust": {
      "post": {
        "summary": "Set on-hand to an absolute quantity",
        "parameters": [{"$ref": "#/components/parameters/ProductId"}, {"$ref": "#/components/parameters/UserId"}],
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/StockChangeRequest"}}}},
        "responses": {
          "200": {"description": "Updated counters"},
          "422": {"description": "New quantity is below reserved"}
        }
      }
    },
    "/api/inventory/{productId}/damage": {
      "post": {
        "summary": "Write off damaged units",
        "parameters": [{"$ref": "#/components/parameters/ProductId"}, {"$ref": "#/components/parameters/UserId"}],
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/StockChangeRequest"}}}},
        "responses": {
          "200": {"description": "Updated counters"},
          "422": {"description": "Removal would cut into reserved units"}
        }
      }
    },
    "/api/reservations": {
      "post": {
        "summary": "Reserve stock for a cart or order",
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/ReservationRequest"}}}},
        "responses": {
          "200": {"description": "Reserved"},
          "409": {"description": "Not enough stock available"}
        }
      }
    },
    "/api/reservations/release": {
      "post": {
        "summary": "Release an active reservation",
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/ReservationRequest"}}}},
        "responses": {"200": {"description": "Released or nothing held"}}
      }
    },
    "/api/reservations/confirm": {
      "post": {
        "summary": "Turn a reservation into a deduction",
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/ReservationRequest"}}}},
        "responses": {
          "200": {"description": "Confirmed"},
          "404": {"description": "Reservation not found"}
        }
      }
    },
    "/api/reservations/{referenceType}/{referenceId}": {
      "get": {
        "summary": "Reservations held by a cart or order",
        "parameters": [
          {"name": "referenceType", "in": "path", "required": true, "schema": {"type": "string", "enum": ["cart", "order"]}},
          {"name": "referenceId", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {
            "description": "Reservations",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/ReservationResponse"}}}}
          }
        }
      }
    },
    "/api/orders": {
      "post": {
        "summary": "Place an order and reserve its stock",
        "responses": {
          "201": {"description": "Order placed", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/OrderResponse"}}}},
          "409": {"description": "Not enough stock available"}
        }
      }
    },
    "/api/orders/{orderId}/transitions": {
      "post": {
        "summary": "Move an order to a new status",
        "parameters": [{"name": "orderId", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
        "requestBody": {"content": {"application/json": {"schema": {"type": "object", "properties": {"status": {"type": "string"}}}}}},
        "responses": {
          "200": {"description": "Transitioned", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/OrderResponse"}}}},
          "422": {"description": "Transition not allowed"}
        }
      }
    },
    "/api/payments": {
      "post": {
        "summary": "Record a pending payment",
        "responses": {"201": {"description": "Recorded"}}
      }
    },
    "/api/payments/{paymentId}/complete": {
      "post": {
        "summary": "Mark a payment completed and complete its order",
        "parameters": [{"$ref": "#/components/parameters/PaymentId"}],
        "responses": {
          "200": {"description": "Payment and order updated"},
          "202": {"description": "Payment updated, order needs reconciliation"}
        }
      }
    },
    "/api/payments/{paymentId}/fail": {
      "post": {
        "summary": "Mark a payment failed",
        "parameters": [{"$ref": "#/components/parameters/PaymentId"}],
        "responses": {
          "200": {"description": "Payment updated"},
          "202": {"description": "Payment updated, order flags need reconciliation"}
        }
      }
    },
    "/api/payments/{paymentId}/refund": {
      "post": {
        "summary": "Refund a completed payment in full",
        "parameters": [{"$ref": "#/components/parameters/PaymentId"}],
        "responses": {
          "200": {"description": "Payment refunded and stock returned"},
          "202": {"description": "Payment refunded, order needs reconciliation"},
          "422": {"description": "Partial refund or refund above the paid amount"}
        }
      }
    }
  },
  "components": {
    "parameters": {
      "ProductId": {"name": "productId", "in": "path", "required": true, "schema": {"type": "string"}},
      "PaymentId": {"name": "paymentId", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}},
      "UserId": {"name": "X-User-Id", "in": "header", "schema": {"type": "string", "format": "uuid"}}
    },
    "schemas": {
      "HealthResponse": {
        "type": "object",
        "properties": {"status": {"type": "string"}}
      },
      "StockResponse": {
        "type": "object",
        "properties": {
          "productId": {"type": "string"},
          "sku": {"type": "string"},
          "name": {"type": "string"},
          "onHand": {"type": "integer"},
          "reserved": {"type": "integer"},
          "available": {"type": "integer"},
          "lowStockThreshold": {"type": "integer"},
          "inStock": {"type": "boolean"},
          "lowStock": {"type": "boolean"}
        }
      },
      "StockChangeRequest": {
        "type": "object",
        "properties": {
          "quantity": {"type": "integer"},
          "notes": {"type": "string"}
        }
      },
      "HistoryEntry": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "format": "uuid"},
          "changeType": {"type": "string"},
          "quantityChanged": {"type": "integer"},
          "resultingOnHand": {"type": "integer"},
          "resultingReserved": {"type": "integer"},
          "notes": {"type": "string"},
          "createdAtUtc": {"type": "string", "format": "date-time"}
        }
      },
      "ReservationRequest": {
        "type": "object",
        "properties": {
          "productId": {"type": "string"},
          "quantity": {"type": "integer"},
          "referenceId": {"type": "string"},
          "referenceType": {"type": "string", "enum": ["cart", "order"]}
        }
      },
      "ReservationResponse": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "format": "uuid"},
          "productId": {"type": "string"},
          "quantity": {"type": "integer"},
          "referenceId": {"type": "string"},
          "referenceType": {"type": "string"},
          "status": {"type": "string"},
          "createdAtUtc": {"type": "string", "format": "date-time"},
          "closedAtUtc": {"type": "string", "format": "date-time", "nullable": true}
        }
      },
      "OrderResponse": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "format": "uuid"},
          "userId": {"type": "string", "format": "uuid"},
          "status": {"type": "string"},
          "isPaid": {"type": "boolean"},
          "paymentStatus": {"type": "string"},
          "total": {"type": "string"}
        }
      }
    }
  }
}`
