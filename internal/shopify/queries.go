package shopify

const productFields = `
  id
  title
  descriptionHtml
  status
  tags
  seo { title description }
  metafields(first: 50) {
    nodes { namespace key type value }
  }
  media(first: 50) {
    nodes {
      ... on MediaImage {
        id
        alt
        image { url }
      }
    }
  }
`

const productQuery = `
query Product($id: ID!) {
  product(id: $id) {` + productFields + `  }
}`

const productIDsQuery = `
query ProductIDs($first: Int!, $after: String, $query: String) {
  products(first: $first, after: $after, query: $query) {
    nodes { id }
    pageInfo { hasNextPage endCursor }
  }
}`

const variantsBySKUQuery = `
query VariantsBySKU($query: String!) {
  productVariants(first: 25, query: $query) {
    nodes {
      id
      sku
      title
      metafield(namespace: "lifecycle", key: "status") { value }
      product { id status }
    }
  }
}`

const productVariantsQuery = `
query ProductVariants($id: ID!) {
  product(id: $id) {
    variants(first: 100) {
      nodes {
        id
        metafield(namespace: "lifecycle", key: "status") { value }
      }
    }
  }
}`

const metaobjectByHandleQuery = `
query MetaobjectByHandle($handle: MetaobjectHandleInput!) {
  metaobjectByHandle(handle: $handle) { id }
}`

const productUpdateMutation = `
mutation ProductUpdate($product: ProductUpdateInput!) {
  productUpdate(product: $product) {
    product { id }
    userErrors { field message }
  }
}`

const metafieldsSetMutation = `
mutation MetafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { id }
    userErrors { field message }
  }
}`

const fileUpdateMutation = `
mutation FileUpdate($files: [FileUpdateInput!]!) {
  fileUpdate(files: $files) {
    files { id }
    userErrors { field message }
  }
}`
